package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"github.com/teemow/agendahook/internal/briefing"
	"github.com/teemow/agendahook/internal/calendar"
	"github.com/teemow/agendahook/internal/config"
	"github.com/teemow/agendahook/internal/google"
	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
	"github.com/teemow/agendahook/internal/webhook"
)

// loadConfig reads the config file named by --config, AGENDAHOOK_CONFIG or
// the default path, in that order.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("AGENDAHOOK_CONFIG")
	}
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	switch {
	case debugMode:
		cfg.LogLevel = "debug"
	case logLevel != "":
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// newCredentialStore opens the configured token store. The returned func
// releases it.
func newCredentialStore(cfg *config.Config) (google.CredentialStore, func(), error) {
	switch cfg.Credentials.Store {
	case config.StoreValkey:
		store, err := google.NewValkeyCredentialStore(google.ValkeyOptions{
			Addr:      cfg.Credentials.Valkey.URL,
			Password:  cfg.Credentials.Valkey.Password,
			KeyPrefix: cfg.Credentials.Valkey.KeyPrefix,
			DB:        cfg.Credentials.Valkey.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return google.NewFileCredentialStore(cfg.Credentials.File), func() {}, nil
	}
}

// pipeline bundles everything a command needs to run the digest.
type pipeline struct {
	oauthConfig *oauth2.Config
	store       google.CredentialStore
	runner      *briefing.Runner
	close       func()
}

// newPipeline wires the runner. authorizer decides what happens when no
// usable token is stored; metrics may be nil.
func newPipeline(cfg *config.Config, logger *slog.Logger, authorizer func(*oauth2.Config) google.Authorizer, metrics *instrumentation.Metrics) (*pipeline, error) {
	oauthConfig, err := google.LoadOAuthConfig(cfg.ClientSecretsFile, cfg.Scope)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := newCredentialStore(cfg)
	if err != nil {
		return nil, err
	}

	credentials := google.NewCredentialManager(oauthConfig, store, authorizer(oauthConfig), logger, metrics)

	runner := briefing.NewRunner(briefing.Options{
		WebhookURL:  cfg.WebhookURL,
		Sources:     cfg.Sources(),
		Credentials: credentials,
		NewLister: func(ctx context.Context, ts oauth2.TokenSource) (calendar.EventLister, error) {
			return calendar.NewClient(ctx, ts, metrics)
		},
		Notifier: webhook.NewClient(logger, metrics),
		Logger:   logger,
		Metrics:  metrics,
		Audit:    instrumentation.NewAuditLogger(logger, instrumentation.DefaultConfig().RunAudit),
	})

	return &pipeline{
		oauthConfig: oauthConfig,
		store:       store,
		runner:      runner,
		close:       closeStore,
	}, nil
}

// interactive authorizes through the browser consent flow.
func interactive(logger *slog.Logger) func(*oauth2.Config) google.Authorizer {
	return func(conf *oauth2.Config) google.Authorizer {
		return google.NewLocalServerAuthorizer(conf, logger)
	}
}

// preProvisioned refuses to authorize; the token must already be stored.
func preProvisioned(*oauth2.Config) google.Authorizer {
	return google.PreProvisionedAuthorizer{}
}

// storeDescription names where the token lives, for user-facing output.
func storeDescription(store google.CredentialStore) string {
	switch s := store.(type) {
	case *google.FileCredentialStore:
		return s.Path()
	case *google.ValkeyCredentialStore:
		return fmt.Sprintf("valkey key %s", s.Key())
	default:
		return "credential store"
	}
}
