package cli

import (
	"github.com/spf13/cobra"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show what the site renders for the client",
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a.sites(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, sites.For(a.clientID).Initialize(cmd.Context()))
		},
	}
}
