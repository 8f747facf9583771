package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
)

// FetchError represents a failed query against one calendar. It is logged
// and absorbed by the Fetcher; callers never see it.
type FetchError struct {
	// Calendar is the label of the calendar that failed
	Calendar string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch calendar %s: %v", e.Calendar, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Window returns the half-open interval [start, end) covering the UTC day
// after ref.
func Window(ref time.Time) (start, end time.Time) {
	next := ref.UTC().Add(24 * time.Hour)
	start = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// Fetcher collects the next day's events across calendar sources.
type Fetcher struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewFetcher creates a Fetcher. A nil logger uses slog.Default().
func NewFetcher(logger *slog.Logger, metrics *instrumentation.Metrics) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		logger:  logging.WithOperation(logger, "calendar.fetch").With(logging.Service(instrumentation.ServiceCalendar)),
		metrics: metrics,
	}
}

// Fetch queries every source for events starting in Window(ref) and returns
// them concatenated in source order, each stamped with its source label.
// Within one source the provider's start-time order is kept. A source that
// fails contributes no events; if every source fails the result is empty,
// exactly as if no events were scheduled.
func (f *Fetcher) Fetch(ctx context.Context, lister EventLister, sources []Source, ref time.Time) []Event {
	start, end := Window(ref)
	f.logger.Debug("fetching calendar events",
		slog.Time("time_min", start),
		slog.Time("time_max", end),
		slog.Int("calendars", len(sources)))

	var events []Event
	for _, src := range sources {
		logger := f.logger.With(logging.Calendar(src.Label))

		items, err := lister.ListEvents(ctx, src.ID, start, end)
		if err != nil {
			fetchErr := &FetchError{Calendar: src.Label, Err: err}
			logger.Error("skipping calendar", logging.Status(logging.StatusError), logging.Err(fetchErr))
			f.metrics.RecordEventsFetched(ctx, src.Label, instrumentation.StatusError, 0)
			continue
		}

		kept := 0
		for _, item := range items {
			ev := toEvent(item, src.Label)
			if !inWindow(ev.Start, start, end) {
				logger.Debug("dropping event outside window",
					slog.String("summary", ev.Summary),
					slog.String("start", ev.Start.Raw()))
				continue
			}
			events = append(events, ev)
			kept++
			logger.Debug("added event",
				slog.String("summary", ev.Summary),
				slog.String("start", ev.Start.Raw()))
		}

		logger.Debug("fetched calendar", logging.Status(logging.StatusSuccess), slog.Int("events", kept))
		f.metrics.RecordEventsFetched(ctx, src.Label, instrumentation.StatusSuccess, kept)
	}

	return events
}

// inWindow reports whether an event's start lies in [start, end). The API
// also returns events that merely overlap the window, e.g. ones that began
// the evening before. All-day events match on their calendar date.
func inWindow(t EventTime, start, end time.Time) bool {
	if t.AllDay() {
		return t.Date == start.Format(DateLayout)
	}
	at, err := t.Instant()
	if err != nil {
		return false
	}
	return !at.Before(start) && at.Before(end)
}
