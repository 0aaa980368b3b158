package cli

import (
	"context"
	"fmt"
	"io"

	"onionsite/internal/redirect"

	"github.com/spf13/cobra"
)

type planOutput struct {
	Mobile bool       `json:"mobile"`
	Steps  []stepLine `json:"steps"`
}

type stepLine struct {
	URL    string          `json:"url"`
	Target redirect.Target `json:"target"`
	After  string          `json:"after"`
}

// printNavigator stands in for the browser: it only reports what would be opened.
type printNavigator struct {
	out io.Writer
}

func (n printNavigator) Open(_ context.Context, url string, target redirect.Target) error {
	_, err := fmt.Fprintf(n.out, "open %s %s\n", target, url)
	return err
}

func newRedirectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "redirect", Short: "Contact link navigation"}

	var userAgent, botUsername string
	var run bool
	plan := &cobra.Command{
		Use:   "plan",
		Short: "Show the navigation steps for a user agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			rcfg := cfg.Redirect
			if botUsername != "" {
				rcfg.BotUsername = botUsername
			}
			planner, err := redirect.NewPlanner(rcfg)
			if err != nil {
				return fmt.Errorf("%w: set redirect.bot_username or pass --bot", err)
			}

			p := planner.Plan(userAgent)
			if run {
				return redirect.Execute(cmd.Context(), p, printNavigator{out: cmd.OutOrStdout()})
			}

			out := planOutput{Mobile: p.Mobile}
			for _, step := range p.Steps {
				out.Steps = append(out.Steps, stepLine{URL: step.URL, Target: step.Target, After: step.After.String()})
			}
			return printJSON(cmd, out)
		},
	}
	plan.Flags().StringVar(&userAgent, "user-agent", "", "User agent of the click")
	plan.Flags().StringVar(&botUsername, "bot", "", "Bot username, overrides the config")
	plan.Flags().BoolVar(&run, "run", false, "Walk the steps in real time")
	_ = plan.MarkFlagRequired("user-agent")
	cmd.AddCommand(plan)

	return cmd
}
