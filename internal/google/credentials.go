package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
)

// AuthError is returned when no usable credentials could be produced.
type AuthError struct {
	// Op is the step that failed: load, refresh, authorize or save
	Op string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("google auth %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *AuthError) Unwrap() error {
	return e.Err
}

// CredentialManager produces a valid access token for each run.
type CredentialManager struct {
	config     *oauth2.Config
	store      CredentialStore
	authorizer Authorizer
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewCredentialManager creates a CredentialManager. A nil logger uses
// slog.Default() and a nil metrics disables metric recording.
func NewCredentialManager(config *oauth2.Config, store CredentialStore, authorizer Authorizer, logger *slog.Logger, metrics *instrumentation.Metrics) *CredentialManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialManager{
		config:     config,
		store:      store,
		authorizer: authorizer,
		logger:     logging.WithService(logging.WithOperation(logger, "oauth.obtain"), "oauth"),
		metrics:    metrics,
	}
}

// Obtain returns a currently valid token.
//
// A stored token that is still valid is returned as is and the store is not
// written. An expired token carrying a refresh token is refreshed and the
// result persisted. When nothing is stored, or the stored token is expired
// and cannot be refreshed, the Authorizer is asked for new credentials,
// which are persisted too. Every failure is returned as *AuthError.
func (m *CredentialManager) Obtain(ctx context.Context) (*oauth2.Token, error) {
	token, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoCredentials):
		m.logger.Info("no stored credentials")
		return m.authorize(ctx)
	case err != nil:
		return nil, m.fail("load", err)
	}

	if token.Valid() {
		m.logger.Debug("stored credentials are valid")
		return token, nil
	}

	if token.RefreshToken == "" {
		m.logger.Info("stored credentials expired without a refresh token")
		return m.authorize(ctx)
	}

	refreshed, err := m.config.TokenSource(ctx, token).Token()
	if err != nil {
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, m.fail("refresh", err)
	}
	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	m.logger.Info("refreshed credentials",
		slog.String("access_token", logging.SanitizeToken(refreshed.AccessToken)),
		slog.Time("expiry", refreshed.Expiry))

	if err := m.store.Save(ctx, refreshed); err != nil {
		return nil, m.fail("save", err)
	}
	return refreshed, nil
}

// TokenSource returns a source that starts from token and refreshes it in
// memory if a run outlives its expiry.
func (m *CredentialManager) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return m.config.TokenSource(ctx, token)
}

func (m *CredentialManager) authorize(ctx context.Context) (*oauth2.Token, error) {
	token, err := m.authorizer.AcquireNewCredentials(ctx)
	if err == nil && token == nil {
		err = errors.New("authorizer returned no token")
	}
	if err != nil {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, m.fail("authorize", err)
	}
	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if err := m.store.Save(ctx, token); err != nil {
		return nil, m.fail("save", err)
	}
	m.logger.Info("stored new credentials",
		slog.String("access_token", logging.SanitizeToken(token.AccessToken)),
		slog.Bool("refreshable", token.RefreshToken != ""))
	return token, nil
}

func (m *CredentialManager) fail(op string, err error) error {
	authErr := &AuthError{Op: op, Err: err}
	m.logger.Error("failed to obtain credentials", logging.Err(authErr))
	return authErr
}
