package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"onionsite/internal/models"
	"onionsite/internal/service"

	"github.com/spf13/cobra"
)

type disclaimerOutput struct {
	Record models.DisclaimerRecord `json:"record"`
	View   models.View             `json:"view"`
}

func newDisclaimerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "disclaimer", Short: "Legal disclaimer gate"}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the disclaimer was accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a.sites(cmd.Context())
			if err != nil {
				return err
			}
			site := sites.For(a.clientID)
			return printJSON(cmd, disclaimerOutput{
				Record: site.Disclaimer().Record(cmd.Context()),
				View:   site.View(cmd.Context()),
			})
		},
	})

	var confirm bool
	accept := &cobra.Command{
		Use:   "accept",
		Short: "Accept the disclaimer (requires --confirm)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a.sites(cmd.Context())
			if err != nil {
				return err
			}
			site := sites.For(a.clientID)
			view, err := site.AcceptDisclaimer(cmd.Context(), confirm)
			if errors.Is(err, service.ErrNotConfirmed) {
				return fmt.Errorf("%w: pass --confirm to acknowledge the terms", err)
			}
			if perr := printJSON(cmd, disclaimerOutput{
				Record: site.Disclaimer().Record(cmd.Context()),
				View:   view,
			}); perr != nil {
				return perr
			}
			return err
		},
	}
	accept.Flags().BoolVar(&confirm, "confirm", false, "I have read and accept the terms")
	cmd.AddCommand(accept)

	var yes bool
	reject := &cobra.Command{
		Use:   "reject",
		Short: "Reject the disclaimer and leave the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a.sites(cmd.Context())
			if err != nil {
				return err
			}
			prompter := linePrompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr(), assume: yes}
			return printJSON(cmd, sites.For(a.clientID).RejectDisclaimer(prompter))
		},
	}
	reject.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm leaving without a prompt")
	cmd.AddCommand(reject)

	return cmd
}

// linePrompter asks on out and reads a y/N answer from in.
type linePrompter struct {
	in     io.Reader
	out    io.Writer
	assume bool
}

func (p linePrompter) Confirm(message string) bool {
	if p.assume {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", message)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "д", "да":
		return true
	default:
		return false
	}
}
