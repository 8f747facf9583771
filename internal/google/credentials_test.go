package google

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeAuthorizer) AcquireNewCredentials(context.Context) (*oauth2.Token, error) {
	f.calls++
	return f.token, f.err
}

// countingStore wraps a store and counts writes.
type countingStore struct {
	CredentialStore
	saves   int
	saveErr error
}

func (s *countingStore) Save(ctx context.Context, token *oauth2.Token) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.CredentialStore.Save(ctx, token)
}

func newStore(t *testing.T, token *oauth2.Token) *countingStore {
	t.Helper()
	store := &countingStore{CredentialStore: NewFileCredentialStore(filepath.Join(t.TempDir(), "token.json"))}
	if token != nil {
		require.NoError(t, store.CredentialStore.Save(context.Background(), token))
	}
	return store
}

func TestObtain_ValidTokenNotRewritten(t *testing.T) {
	server := newTokenServer(t)
	store := newStore(t, &oauth2.Token{AccessToken: "still-good", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)})
	authz := &fakeAuthorizer{}

	token, err := NewCredentialManager(server.config(), store, authz, nil, nil).Obtain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "still-good", token.AccessToken)
	assert.Zero(t, store.saves)
	assert.Zero(t, authz.calls)
	assert.Zero(t, server.hits.Load())
}

func TestObtain_ExpiredTokenRefreshed(t *testing.T) {
	server := newTokenServer(t)
	store := newStore(t, &oauth2.Token{AccessToken: "stale", RefreshToken: "keep-me", Expiry: time.Now().Add(-time.Hour)})
	authz := &fakeAuthorizer{}

	token, err := NewCredentialManager(server.config(), store, authz, nil, nil).Obtain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh-refresh_token", token.AccessToken)
	assert.Equal(t, "keep-me", token.RefreshToken, "refresh token is kept when the provider omits it")
	assert.True(t, token.Valid())
	assert.Equal(t, 1, store.saves)
	assert.Zero(t, authz.calls)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-refresh_token", stored.AccessToken)
}

func TestObtain_RefreshTwice(t *testing.T) {
	server := newTokenServer(t)
	store := newStore(t, &oauth2.Token{AccessToken: "stale", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)})
	authz := &fakeAuthorizer{}
	manager := NewCredentialManager(server.config(), store, authz, nil, nil)

	first, err := manager.Obtain(context.Background())
	require.NoError(t, err)

	second, err := manager.Obtain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, int32(1), server.hits.Load())
	assert.Equal(t, 1, store.saves)
	assert.Zero(t, authz.calls)
}

func TestObtain_MissingRunsAuthorizer(t *testing.T) {
	server := newTokenServer(t)
	store := newStore(t, nil)
	authz := &fakeAuthorizer{token: &oauth2.Token{AccessToken: "brand-new", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}}

	token, err := NewCredentialManager(server.config(), store, authz, nil, nil).Obtain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "brand-new", token.AccessToken)
	assert.Equal(t, 1, authz.calls)
	assert.Equal(t, 1, store.saves)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "brand-new", stored.AccessToken)
}

func TestObtain_LogsMaskTokens(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	server := newTokenServer(t)
	store := newStore(t, &oauth2.Token{AccessToken: "stale", RefreshToken: "keep-me", Expiry: time.Now().Add(-time.Hour)})

	token, err := NewCredentialManager(server.config(), store, &fakeAuthorizer{}, logger, nil).Obtain(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "refreshed credentials")
	assert.Contains(t, out, "service=oauth")
	assert.Contains(t, out, "[token:")
	assert.NotContains(t, out, token.AccessToken)
	assert.NotContains(t, out, "keep-me")
}

func TestObtain_ExpiredWithoutRefreshRunsAuthorizer(t *testing.T) {
	server := newTokenServer(t)
	store := newStore(t, &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)})
	authz := &fakeAuthorizer{token: &oauth2.Token{AccessToken: "brand-new", Expiry: time.Now().Add(time.Hour)}}

	token, err := NewCredentialManager(server.config(), store, authz, nil, nil).Obtain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "brand-new", token.AccessToken)
	assert.Equal(t, 1, authz.calls)
	assert.Zero(t, server.hits.Load())
}

func TestObtain_Failures(t *testing.T) {
	t.Run("refresh rejected", func(t *testing.T) {
		server := newTokenServer(t)
		server.status = http.StatusBadRequest
		store := newStore(t, &oauth2.Token{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)})

		_, err := NewCredentialManager(server.config(), store, &fakeAuthorizer{}, nil, nil).Obtain(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "refresh", authErr.Op)
		assert.Zero(t, store.saves)
	})

	t.Run("malformed file", func(t *testing.T) {
		server := newTokenServer(t)
		path := filepath.Join(t.TempDir(), "token.json")
		require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0600))
		authz := &fakeAuthorizer{}

		_, err := NewCredentialManager(server.config(), NewFileCredentialStore(path), authz, nil, nil).Obtain(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "load", authErr.Op)
		assert.Zero(t, authz.calls)
	})

	t.Run("authorizer fails", func(t *testing.T) {
		server := newTokenServer(t)
		store := newStore(t, nil)

		_, err := NewCredentialManager(server.config(), store, PreProvisionedAuthorizer{}, nil, nil).Obtain(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "authorize", authErr.Op)
		assert.ErrorIs(t, err, ErrAuthorizationRequired)
		assert.Zero(t, store.saves)
	})

	t.Run("authorizer returns nothing", func(t *testing.T) {
		server := newTokenServer(t)

		_, err := NewCredentialManager(server.config(), newStore(t, nil), &fakeAuthorizer{}, nil, nil).Obtain(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "authorize", authErr.Op)
	})

	t.Run("save fails", func(t *testing.T) {
		server := newTokenServer(t)
		store := newStore(t, &oauth2.Token{AccessToken: "stale", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)})
		store.saveErr = errors.New("disk full")

		token, err := NewCredentialManager(server.config(), store, &fakeAuthorizer{}, nil, nil).Obtain(context.Background())
		assert.Nil(t, token)
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "save", authErr.Op)
	})
}

func TestAuthError(t *testing.T) {
	inner := errors.New("boom")
	err := &AuthError{Op: "refresh", Err: inner}
	assert.Equal(t, "google auth refresh: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
