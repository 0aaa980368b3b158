package cli

import (
	"context"
	"errors"
	"fmt"

	"onionsite/internal/models"
	"onionsite/internal/service"

	"github.com/spf13/cobra"
)

type consentOutput struct {
	Record models.ConsentRecord `json:"record"`
	View   models.View          `json:"view"`
}

type saveFunc func(ctx context.Context, site *service.Site) (models.ConsentRecord, models.View, error)

func newConsentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "consent", Short: "Cookie consent"}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the saved consent decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a.sites(cmd.Context())
			if err != nil {
				return err
			}
			site := sites.For(a.clientID)
			return printJSON(cmd, consentOutput{
				Record: site.Consent().GetStatus(cmd.Context()),
				View:   site.View(cmd.Context()),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "accept-all",
		Short: "Enable every category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.saveConsent(cmd, func(ctx context.Context, site *service.Site) (models.ConsentRecord, models.View, error) {
				return site.AcceptAll(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reject-all",
		Short: "Keep only essential cookies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.saveConsent(cmd, func(ctx context.Context, site *service.Site) (models.ConsentRecord, models.View, error) {
				return site.RejectAll(ctx)
			})
		},
	})

	var analytics, preferences bool
	save := &cobra.Command{
		Use:   "save",
		Short: "Save a custom selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			selections := map[models.CategoryID]bool{
				models.CategoryAnalytics:   analytics,
				models.CategoryPreferences: preferences,
			}
			return a.saveConsent(cmd, func(ctx context.Context, site *service.Site) (models.ConsentRecord, models.View, error) {
				return site.SaveCustom(ctx, selections)
			})
		},
	}
	save.Flags().BoolVar(&analytics, "analytics", false, "Allow analytics cookies")
	save.Flags().BoolVar(&preferences, "preferences", false, "Allow preference cookies")
	cmd.AddCommand(save)

	return cmd
}

// saveConsent prints the effective record even when it could not be persisted.
func (a *app) saveConsent(cmd *cobra.Command, fn saveFunc) error {
	sites, err := a.sites(cmd.Context())
	if err != nil {
		return err
	}
	site := sites.For(a.clientID)
	site.Initialize(cmd.Context())

	rec, view, err := fn(cmd.Context(), site)
	if errors.Is(err, service.ErrGateClosed) {
		return fmt.Errorf("%w: run `sitegate disclaimer accept --confirm` first", err)
	}
	if perr := printJSON(cmd, consentOutput{Record: rec, View: view}); perr != nil {
		return perr
	}
	return err
}
