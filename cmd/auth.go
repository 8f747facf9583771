package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/agendahook/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize agendahook with Google and store the token",
		Long: `Runs the browser consent flow and stores the resulting token in the
configured credential store, replacing any token already there.

Run this once on a machine with a browser before starting "serve", which
never opens the consent flow itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			oauthConfig, err := google.LoadOAuthConfig(cfg.ClientSecretsFile, cfg.Scope)
			if err != nil {
				return err
			}

			store, closeStore, err := newCredentialStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			token, err := google.NewLocalServerAuthorizer(oauthConfig, logger).AcquireNewCredentials(cmd.Context())
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			if token.RefreshToken == "" {
				logger.Warn("Google did not return a refresh token; the token will stop working when it expires. Revoke agendahook's access in your Google account and run auth again.")
			}

			if err := store.Save(cmd.Context(), token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", storeDescription(store))
			return nil
		},
	}
}
