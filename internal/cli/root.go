// Package cli is the command line host of the site: every gate, consent,
// beacon and redirect command runs against a local store.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"onionsite/internal/config"
	"onionsite/internal/events"
	"onionsite/internal/logging"
	"onionsite/internal/repository"
	"onionsite/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const defaultClientID = "local"

// app holds the lazily opened state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	clientID   string
	verbose    bool

	cfg     *config.Config
	logger  *zerolog.Logger
	closer  io.Closer
	backend *repository.Backend
}

func NewRootCmd(version, buildDate string) *cobra.Command {
	return newRootCmd(&app{}, version, buildDate)
}

func newRootCmd(a *app, version, buildDate string) *cobra.Command {
	root := &cobra.Command{
		Use:           "sitegate",
		Short:         "Disclaimer gate and cookie consent for the site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.yaml (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite file, overrides storage settings from the config")
	root.PersistentFlags().StringVar(&a.clientID, "client", defaultClientID, "Client whose records are used")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Write logs to stderr")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newDisclaimerCmd(a))
	root.AddCommand(newConsentCmd(a))
	root.AddCommand(newViewCmd(a))
	root.AddCommand(newBeaconCmd(a))
	root.AddCommand(newRedirectCmd(a))
	root.AddCommand(newBackupCmd(a))
	closeAfterRun(root, a)
	return root
}

// closeAfterRun releases the store and the log file after every command,
// failed ones included: cobra skips PostRun hooks when RunE returns an error.
func closeAfterRun(cmd *cobra.Command, a *app) {
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, a)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if cerr := a.close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
}

func newVersionCmd(version, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitegate %s (%s)\n", version, buildDate)
		},
	}
}

// config loads the configuration once. A missing --config means defaults.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if a.dbPath != "" {
		cfg.Storage.Driver = config.StorageSQLite
		cfg.Storage.SQLitePath = a.dbPath
	}

	cfg.Logging.Output = "discard"
	if a.verbose {
		cfg.Logging.Output = "stderr"
		cfg.Logging.Format = "console"
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, err
	}

	a.cfg = cfg
	a.logger = logger
	a.closer = closer
	return cfg, nil
}

func (a *app) open(ctx context.Context) (*repository.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	backend, err := repository.Open(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	return backend, nil
}

func (a *app) sites(ctx context.Context) (*service.SiteFactory, error) {
	backend, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	bus := events.NewEventBus()
	for _, eventType := range []string{events.EventDisclaimerAccepted, events.EventConsentSaved} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			a.logger.Debug().Str("event", event.Type).RawJSON("payload", event.Payload).Msg("Site event")
			return nil
		})
	}
	return service.NewSiteFactory(backend.Store, a.cfg.Site, bus, a.logger), nil
}

func (a *app) close() error {
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
		a.backend = nil
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
		a.closer = nil
	}
	a.cfg = nil
	return errors.Join(errs...)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version, buildDate string) {
	root := NewRootCmd(version, buildDate)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
