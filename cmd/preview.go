package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print tomorrow's digest without posting it",
		Args:  cobra.NoArgs,
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

			text, err := p.runner.Preview(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to authenticate with Google: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Fail instead of starting the browser consent flow when no token is stored")
	return cmd
}
