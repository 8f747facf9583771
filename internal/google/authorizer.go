package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/agendahook/internal/logging"
)

// Authorizer acquires brand-new credentials when no usable token exists.
type Authorizer interface {
	AcquireNewCredentials(ctx context.Context) (*oauth2.Token, error)
}

// ErrAuthorizationRequired is returned by PreProvisionedAuthorizer.
var ErrAuthorizationRequired = errors.New("no usable Google credentials; run \"agendahook auth\" to authorize")

// PreProvisionedAuthorizer never starts an interactive flow. It is used by
// unattended processes that must not block waiting for a browser.
type PreProvisionedAuthorizer struct{}

// AcquireNewCredentials always fails with ErrAuthorizationRequired.
func (PreProvisionedAuthorizer) AcquireNewCredentials(context.Context) (*oauth2.Token, error) {
	return nil, ErrAuthorizationRequired
}

// LocalServerAuthorizer runs the installed-app consent flow: it listens on a
// random loopback port, sends the user to the consent page, and exchanges
// the code delivered to the redirect.
type LocalServerAuthorizer struct {
	config *oauth2.Config
	logger *slog.Logger

	// OpenURL presents the consent URL to the user. The default prints it
	// to stderr.
	OpenURL func(url string) error

	// ListenAddr is the loopback address to bind (default 127.0.0.1:0).
	ListenAddr string
}

// NewLocalServerAuthorizer creates an authorizer for the given OAuth config.
func NewLocalServerAuthorizer(config *oauth2.Config, logger *slog.Logger) *LocalServerAuthorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalServerAuthorizer{
		config:     config,
		logger:     logging.WithOperation(logger, "oauth.authorize"),
		OpenURL:    printURL(os.Stderr),
		ListenAddr: "127.0.0.1:0",
	}
}

func printURL(w io.Writer) func(string) error {
	return func(url string) error {
		_, err := fmt.Fprintf(w, "Open the following link in your browser to authorize agendahook:\n\n%s\n\n", url)
		return err
	}
}

type callbackResult struct {
	code string
	err  error
}

// AcquireNewCredentials blocks until the redirect arrives or ctx is done.
func (a *LocalServerAuthorizer) AcquireNewCredentials(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", a.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start redirect listener: %w", err)
	}

	conf := *a.config
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	deliver := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "Authorization failed. You may close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "State mismatch. You may close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("authorization state mismatch")})
		case q.Get("code") == "":
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("redirect carried no authorization code")})
		default:
			_, _ = io.WriteString(w, "The authentication flow has completed. You may close this window.")
			deliver(callbackResult{code: q.Get("code")})
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("redirect listener failed", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("waiting for authorization", slog.String("redirect_url", conf.RedirectURL))
	if err := a.OpenURL(conf.AuthCodeURL(state, oauth2.AccessTypeOffline)); err != nil {
		return nil, fmt.Errorf("failed to present consent URL: %w", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization aborted: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := conf.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}
