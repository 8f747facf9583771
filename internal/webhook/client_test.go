package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send_Delivered(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		var raw map[string]any
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.Len(t, raw, 1, "payload has only the content field")

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	result, err := NewClient(nil, nil).Send(context.Background(), srv.URL, "# Tomorrow's schedule:\n\n* No events scheduled.")
	require.NoError(t, err)

	assert.True(t, result.Delivered)
	assert.Equal(t, http.StatusNoContent, result.StatusCode)
	assert.Equal(t, "# Tomorrow's schedule:\n\n* No events scheduled.", got.Content)
}

func TestClient_Send_NonNoContentIsNotDelivered(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"ok with body", http.StatusOK, `{"id":"1"}`},
		{"rate limited", http.StatusTooManyRequests, `{"message": "You are being rate limited."}`},
		{"not found", http.StatusNotFound, `{"message": "Unknown Webhook"}`},
		{"server error", http.StatusInternalServerError, "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := NewClient(nil, nil).Send(context.Background(), srv.URL, "hello")
			require.NoError(t, err)
			assert.False(t, result.Delivered)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.body, result.Body)
		})
	}
}

func TestClient_Send_SingleAttempt(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(nil, nil).Send(context.Background(), srv.URL, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestClient_Send_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(nil, nil, WithTimeout(2*time.Second)).Send(context.Background(), url, "hello")
	require.Error(t, err)

	var deliveryErr *DeliveryError
	assert.True(t, errors.As(err, &deliveryErr))
}

func TestClient_Send_Truncates(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	long := strings.Repeat("* 10:00 AM - Standup (Work)\n", 200)
	result, err := NewClient(nil, nil).Send(context.Background(), srv.URL, long)
	require.NoError(t, err)
	assert.True(t, result.Delivered)

	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(got.Content))
	assert.True(t, strings.HasSuffix(got.Content, TruncationMarker))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "ää…", Truncate("ääääää", 3))
	assert.Equal(t, "…", Truncate("abc", 1))
}

func TestDeliveryError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &DeliveryError{Err: inner}
	assert.Equal(t, "webhook delivery failed: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)
}
