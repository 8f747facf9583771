package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/agendahook/internal/calendar"
	"github.com/teemow/agendahook/internal/digest"
	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
	"github.com/teemow/agendahook/internal/webhook"
)

// Trigger names recorded with every run.
const (
	TriggerHTTP     = "http"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// Messages returned to the caller that started a run.
const (
	MsgNoWebhook  = "Webhook URL not set"
	MsgAuthFailed = "Failed to authenticate with Google"
	MsgNoEvents   = "No events found."
	MsgSent       = "Message sent successfully."
)

// Outcome is the response of one run: an HTTP-style status and a short
// human readable message.
type Outcome struct {
	Status  int
	Message string

	RunID  string
	Events int
}

// OK reports whether the run ended with status 200.
func (o Outcome) OK() bool {
	return o.Status == http.StatusOK
}

// Credentials produces the token used for one run.
type Credentials interface {
	Obtain(ctx context.Context) (*oauth2.Token, error)
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
}

// ListerFactory builds a calendar client authenticated with ts.
type ListerFactory func(ctx context.Context, ts oauth2.TokenSource) (calendar.EventLister, error)

// Notifier delivers the digest.
type Notifier interface {
	Send(ctx context.Context, url, message string) (webhook.Result, error)
}

// Options wires a Runner.
type Options struct {
	WebhookURL  string
	Sources     []calendar.Source
	Credentials Credentials
	NewLister   ListerFactory
	Notifier    Notifier

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger

	// Now returns the reference time of a run (default time.Now).
	Now func() time.Time
}

// Runner executes the digest pipeline: authenticate, fetch the next day's
// events, format them and post the result.
type Runner struct {
	webhookURL  string
	sources     []calendar.Source
	credentials Credentials
	newLister   ListerFactory
	notifier    Notifier
	fetcher     *calendar.Fetcher

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		webhookURL:  opts.WebhookURL,
		sources:     opts.Sources,
		credentials: opts.Credentials,
		newLister:   opts.NewLister,
		notifier:    opts.Notifier,
		fetcher:     calendar.NewFetcher(logger, opts.Metrics),
		logger:      logging.WithOperation(logger, "briefing.run"),
		metrics:     opts.Metrics,
		audit:       opts.Audit,
		now:         now,
	}
}

// Run executes one pipeline run. It never returns an error: every failure
// is reported through the Outcome.
//
//	webhook URL unset             400 Webhook URL not set
//	authentication failed         500 Failed to authenticate with Google
//	no events                     200 No events found.
//	webhook answered 204          200 Message sent successfully.
//	webhook answered otherwise    400 Error: <status> <body>
//	webhook request failed        500 Error: <err>
func (r *Runner) Run(ctx context.Context, trigger string) Outcome {
	runID := uuid.NewString()
	logger := logging.WithRunID(r.logger, runID).With(slog.String("trigger", trigger))

	ctx, span := instrumentation.StartRunSpan(ctx,
		instrumentation.NewSpanAttributeBuilder().WithRunID(runID).WithTrigger(trigger).Build()...)
	defer span.End()

	record := instrumentation.NewRunRecord(runID, trigger).WithSpanContext(ctx)
	logger.Info("starting run")

	outcome, result, err := r.run(ctx, logger)
	outcome.RunID = runID

	span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, result))
	if outcome.OK() {
		instrumentation.SetSpanSuccess(span)
	} else {
		instrumentation.SetSpanError(span, errors.New(outcome.Message))
	}

	record.Complete(result, outcome.Status, outcome.Events, err)
	r.metrics.RecordRun(ctx, trigger, result, record.Duration)
	r.audit.LogRun(record)

	logger.Info("run finished",
		logging.StatusCode(outcome.Status),
		slog.String("result", result),
		slog.Duration(logging.KeyDuration, record.Duration))
	return outcome
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger) (Outcome, string, error) {
	if r.webhookURL == "" {
		logger.Error("webhook URL is not set")
		return Outcome{Status: http.StatusBadRequest, Message: MsgNoWebhook}, instrumentation.RunResultNoWebhook, nil
	}

	events, err := r.collect(ctx)
	if err != nil {
		logger.Error("failed to authenticate with Google", logging.Err(err))
		return Outcome{Status: http.StatusInternalServerError, Message: MsgAuthFailed}, instrumentation.RunResultAuthFailed, err
	}

	if len(events) == 0 {
		logger.Info("no events found for tomorrow, no message will be sent")
		return Outcome{Status: http.StatusOK, Message: MsgNoEvents}, instrumentation.RunResultNoEvents, nil
	}

	message := digest.Format(events)
	logger.Debug("sending digest", slog.Int("events", len(events)), slog.Int("length", len(message)))

	res, err := r.notifier.Send(ctx, r.webhookURL, message)
	if err != nil {
		cause := err
		var deliveryErr *webhook.DeliveryError
		if errors.As(err, &deliveryErr) {
			cause = deliveryErr.Err
		}
		return Outcome{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Error: %v", cause),
			Events:  len(events),
		}, instrumentation.RunResultDeliveryError, err
	}

	if !res.Delivered {
		return Outcome{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Error: %d %s", res.StatusCode, res.Body),
			Events:  len(events),
		}, instrumentation.RunResultRejected, fmt.Errorf("webhook answered %d", res.StatusCode)
	}

	return Outcome{Status: http.StatusOK, Message: MsgSent, Events: len(events)}, instrumentation.RunResultSent, nil
}

// Preview authenticates and returns the digest that a run would post now,
// without contacting the webhook.
func (r *Runner) Preview(ctx context.Context) (string, error) {
	events, err := r.collect(ctx)
	if err != nil {
		return "", err
	}
	return digest.Format(events), nil
}

// collect obtains credentials and fetches the next day's events. Only
// authentication problems are returned; calendar failures are absorbed by
// the fetcher.
func (r *Runner) collect(ctx context.Context) ([]calendar.Event, error) {
	token, err := r.credentials.Obtain(ctx)
	if err != nil {
		return nil, err
	}

	lister, err := r.newLister(ctx, r.credentials.TokenSource(ctx, token))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return r.fetcher.Fetch(ctx, lister, r.sources, r.now()), nil
}
