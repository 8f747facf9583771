package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// RunRecord captures the outcome of one digest pipeline run for the audit
// log. One record is emitted per run regardless of result.
type RunRecord struct {
	RunID   string
	Trigger string

	// Result is one of the RunResult* constants
	Result     string
	StatusCode int
	Events     int

	StartTime time.Time
	Duration  time.Duration
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewRunRecord creates a RunRecord with timing started.
// Call Complete() when the run finishes.
func NewRunRecord(runID, trigger string) *RunRecord {
	return &RunRecord{
		RunID:     runID,
		Trigger:   trigger,
		StartTime: time.Now(),
	}
}

// WithSpanContext extracts trace context from the current span.
func (r *RunRecord) WithSpanContext(ctx context.Context) *RunRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.TraceID = span.SpanContext().TraceID().String()
		r.SpanID = span.SpanContext().SpanID().String()
	}
	return r
}

// Complete marks the run as finished and calculates duration.
func (r *RunRecord) Complete(result string, statusCode, events int, err error) *RunRecord {
	r.Duration = time.Since(r.StartTime)
	r.Result = result
	r.StatusCode = statusCode
	r.Events = events
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Success reports whether the run ended with a 200 response.
func (r *RunRecord) Success() bool {
	return r.StatusCode == 200
}

// LogAttrs returns slog attributes for structured logging.
func (r *RunRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.String("trigger", r.Trigger),
		slog.String("result", r.Result),
		slog.Int("status_code", r.StatusCode),
		slog.Int("events", r.Events),
		slog.Duration("duration", r.Duration),
	}

	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per pipeline run.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
func NewAuditLogger(logger *slog.Logger, enabled bool) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: enabled,
	}
}

// LogRun logs a completed run. Runs that did not end in a 200 are logged
// at warn level. Safe to call on a nil AuditLogger.
func (al *AuditLogger) LogRun(r *RunRecord) {
	if al == nil || !al.enabled {
		return
	}

	attrs := r.LogAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if r.Success() {
		al.logger.Info("run_completed", args...)
	} else {
		al.logger.Warn("run_failed", args...)
	}
}
