package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
)

const (
	// MaxContentLength is the longest message body Discord accepts.
	MaxContentLength = 2000

	// TruncationMarker ends a message that was cut to MaxContentLength.
	TruncationMarker = "…"

	defaultTimeout = 30 * time.Second
)

// Payload is the JSON document posted to the webhook.
type Payload struct {
	Content string `json:"content"`
}

// Result describes the webhook's answer to one delivery.
type Result struct {
	// Delivered is true only for a 204 No Content response
	Delivered bool

	StatusCode int
	Body       string
}

// DeliveryError is returned when the POST never produced a response.
type DeliveryError struct {
	Err error
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client posts digests to a chat webhook.
type Client struct {
	http    *resty.Client
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithTransport sets the base transport wrapped by the tracing transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.SetTransport(otelhttp.NewTransport(rt))
	}
}

// NewClient creates a webhook client. Deliveries are attempted exactly once.
func NewClient(logger *slog.Logger, metrics *instrumentation.Metrics, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		http: resty.New().
			SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
			SetTimeout(defaultTimeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "agendahook"),
		logger:  logging.WithService(logging.WithOperation(logger, "webhook.send"), "webhook"),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts message to url as {"content": message}. A response of any
// status yields a Result; only a transport failure yields an error.
func (c *Client) Send(ctx context.Context, url, message string) (Result, error) {
	logger := c.logger.With(slog.String("webhook", logging.SanitizeWebhookURL(url)))

	content := Truncate(message, MaxContentLength)
	if len(content) != len(message) {
		logger.Warn("message truncated",
			slog.Int("length", utf8.RuneCountInString(message)),
			slog.Int("limit", MaxContentLength))
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(Payload{Content: content}).
		Post(url)
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordWebhookDelivery(ctx, 0, duration)
		deliveryErr := &DeliveryError{Err: err}
		logger.Error("webhook request failed", logging.Err(deliveryErr))
		return Result{}, deliveryErr
	}

	c.metrics.RecordWebhookDelivery(ctx, resp.StatusCode(), duration)

	result := Result{
		Delivered:  resp.StatusCode() == http.StatusNoContent,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}
	if result.Delivered {
		logger.Info("message delivered", logging.StatusCode(result.StatusCode), slog.Duration(logging.KeyDuration, duration))
	} else {
		logger.Warn("webhook rejected message", logging.StatusCode(result.StatusCode), slog.String("body", result.Body))
	}
	return result, nil
}

// Truncate shortens s to at most limit characters, replacing the tail with
// TruncationMarker when it had to cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(TruncationMarker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + TruncationMarker
}
