package cli

import (
	"context"
	"time"

	"onionsite/internal/beacon"
	"onionsite/internal/models"
	"onionsite/internal/repository"

	"github.com/spf13/cobra"
)

type beaconOutput struct {
	Sent     bool   `json:"sent"`
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason,omitempty"`
}

type beaconFlags struct {
	endpoint  string
	info      models.ClientInfo
	noDelay   bool
	waitLimit time.Duration
}

func newBeaconCmd(a *app) *cobra.Command {
	f := &beaconFlags{}
	cmd := &cobra.Command{Use: "beacon", Short: "Analytics visit beacon"}
	cmd.PersistentFlags().StringVar(&f.endpoint, "endpoint", "", "Collector URL, resolved from the page URL when empty")
	cmd.PersistentFlags().StringVar(&f.info.URL, "url", "", "Page URL")
	cmd.PersistentFlags().StringVar(&f.info.Referrer, "referrer", "", "Referrer URL")
	cmd.PersistentFlags().StringVar(&f.info.UserAgent, "user-agent", "sitegate-cli", "User agent")
	cmd.PersistentFlags().StringVar(&f.info.Language, "language", "en-US", "Browser language")
	cmd.PersistentFlags().StringVar(&f.info.Timezone, "timezone", "UTC", "IANA timezone")
	cmd.PersistentFlags().StringVar(&f.info.Platform, "platform", "cli", "Platform")
	cmd.PersistentFlags().DurationVar(&f.waitLimit, "wait", 10*time.Second, "How long to wait for the delivery")

	send := &cobra.Command{
		Use:   "send",
		Short: "Send a page_view visit if analytics consent is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBeacon(cmd, f, models.EventPageView)
		},
	}
	send.Flags().BoolVar(&f.noDelay, "no-delay", false, "Skip the page load delay")
	cmd.AddCommand(send)

	cmd.AddCommand(&cobra.Command{
		Use:   "unload",
		Short: "Send a page_unload visit if analytics consent is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBeacon(cmd, f, models.EventPageUnload)
		},
	})
	return cmd
}

func (a *app) runBeacon(cmd *cobra.Command, f *beaconFlags, event string) error {
	sites, err := a.sites(cmd.Context())
	if err != nil {
		return err
	}
	cfg := a.cfg

	info := f.info
	info.CookieEnabled = true
	info.Online = true
	if info.URL == "" {
		info.URL = cfg.Site.URL
	}

	endpoint := f.endpoint
	if endpoint == "" {
		endpoint = beacon.ResolveEndpoint(cfg.Beacon, info.URL)
	}
	delay := cfg.Beacon.LoadDelay
	if f.noDelay {
		delay = 0
	}

	sender := beacon.NewSender(endpoint, cfg.Beacon.Timeout, a.logger)
	// один запуск CLI = одна сессия посетителя
	tracker := beacon.NewTracker(sender, repository.NewMemoryStateRepository(), delay, a.logger)
	sites.For(a.clientID, tracker).Initialize(cmd.Context())

	var sent bool
	if event == models.EventPageUnload {
		sent = tracker.TrackUnload(cmd.Context(), info)
	} else {
		sent = tracker.TrackPageView(cmd.Context(), info)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), delay+f.waitLimit)
	defer cancel()
	if err := sender.Close(ctx); err != nil {
		return err
	}

	out := beaconOutput{Sent: sent, Event: event, Endpoint: endpoint}
	if !sent {
		out.Reason = "analytics consent not given"
	}
	return printJSON(cmd, out)
}
