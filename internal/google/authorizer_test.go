package google

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// visitRedirect simulates the browser returning from the consent page.
func visitRedirect(t *testing.T, consentURL string, mutate func(q url.Values)) (int, error) {
	t.Helper()
	u, err := url.Parse(consentURL)
	if err != nil {
		return 0, err
	}
	params := u.Query()

	q := url.Values{}
	q.Set("code", "auth-code")
	q.Set("state", params.Get("state"))
	if mutate != nil {
		mutate(q)
	}

	resp, err := http.Get(params.Get("redirect_uri") + "?" + q.Encode())
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func TestLocalServerAuthorizer_Success(t *testing.T) {
	server := newTokenServer(t)
	authz := NewLocalServerAuthorizer(server.config(), nil)

	var status int
	authz.OpenURL = func(consentURL string) error {
		u, err := url.Parse(consentURL)
		require.NoError(t, err)
		assert.Equal(t, "offline", u.Query().Get("access_type"))
		assert.Contains(t, u.Query().Get("redirect_uri"), "http://127.0.0.1:")

		status, err = visitRedirect(t, consentURL, nil)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := authz.AcquireNewCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fresh-authorization_code", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, int32(1), server.hits.Load())
}

func TestLocalServerAuthorizer_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q url.Values)
		errMsg string
	}{
		{"state mismatch", func(q url.Values) { q.Set("state", "forged") }, "state mismatch"},
		{"user denied", func(q url.Values) { q.Del("code"); q.Set("error", "access_denied") }, "access_denied"},
		{"missing code", func(q url.Values) { q.Del("code") }, "no authorization code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTokenServer(t)
			authz := NewLocalServerAuthorizer(server.config(), nil)

			var status int
			authz.OpenURL = func(consentURL string) error {
				var err error
				status, err = visitRedirect(t, consentURL, tt.mutate)
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			_, err := authz.AcquireNewCredentials(ctx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Zero(t, server.hits.Load(), "no code exchange on a rejected redirect")
		})
	}
}

func TestLocalServerAuthorizer_ContextCancel(t *testing.T) {
	server := newTokenServer(t)
	authz := NewLocalServerAuthorizer(server.config(), nil)
	authz.OpenURL = func(string) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := authz.AcquireNewCredentials(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPreProvisionedAuthorizer(t *testing.T) {
	token, err := PreProvisionedAuthorizer{}.AcquireNewCredentials(context.Background())
	assert.Nil(t, token)
	assert.ErrorIs(t, err, ErrAuthorizationRequired)
}
