package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/agendahook/internal/briefing"
)

func newRunCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the digest pipeline once",
		Long: `Fetches tomorrow's events, posts the digest to the webhook and prints
the outcome. Exits non-zero unless the outcome status is 200.

If no usable token is stored, the browser consent flow is started unless
--no-browser is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			authorizer := interactive(logger)
			if noBrowser {
				authorizer = preProvisioned
			}

			p, err := newPipeline(cfg, logger, authorizer, nil)
			if err != nil {
				return err
			}
			defer p.close()

			outcome := p.runner.Run(cmd.Context(), briefing.TriggerCLI)
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			if !outcome.OK() {
				return fmt.Errorf("run %s finished with status %d", outcome.RunID, outcome.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Fail instead of starting the browser consent flow when no token is stored")
	return cmd
}
