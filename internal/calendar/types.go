package calendar

import (
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// DateLayout is the layout of an all-day event's start date.
const DateLayout = "2006-01-02"

// LocalDateTimeLayout is a start time without a UTC offset, read in the
// event's TimeZone.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// Source is one configured calendar: the Google Calendar ID to query and the
// label shown next to each of its events.
type Source struct {
	ID    string
	Label string
}

// EventTime mirrors the provider's start representation. Exactly one of
// DateTime (RFC 3339, or local time when the offset is omitted) or Date (YYYY-MM-DD, all-day events) is set.
type EventTime struct {
	DateTime string
	Date     string
	// TimeZone is the IANA zone the event was created in; empty means UTC.
	TimeZone string
}

// AllDay reports whether the event has a date but no time of day.
func (t EventTime) AllDay() bool {
	return t.DateTime == "" && t.Date != ""
}

// Raw returns the start value as sent by the provider.
func (t EventTime) Raw() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Location resolves TimeZone, falling back to UTC when it is empty or not a
// zone known to the host's timezone database.
func (t EventTime) Location() *time.Location {
	if t.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Instant returns the start as a point in time. All-day events resolve to
// midnight of their date in the event's own zone.
func (t EventTime) Instant() (time.Time, error) {
	switch {
	case t.DateTime != "":
		at, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return at, nil
		}
		if local, lerr := time.ParseInLocation(LocalDateTimeLayout, t.DateTime, t.Location()); lerr == nil {
			return local, nil
		}
		return time.Time{}, err
	case t.Date != "":
		return time.ParseInLocation(DateLayout, t.Date, t.Location())
	default:
		return time.Time{}, fmt.Errorf("event has no start")
	}
}

// Event is a calendar event for one digest run, stamped with the label of
// the source it was fetched from.
type Event struct {
	ID            string
	Summary       string
	Start         EventTime
	CalendarLabel string
}

// toEvent converts a Google Calendar event and stamps it with label.
func toEvent(event *calendar.Event, label string) Event {
	if event == nil {
		return Event{CalendarLabel: label}
	}

	e := Event{
		ID:            event.Id,
		Summary:       event.Summary,
		CalendarLabel: label,
	}

	if event.Start != nil {
		e.Start = EventTime{
			DateTime: event.Start.DateTime,
			Date:     event.Start.Date,
			TimeZone: event.Start.TimeZone,
		}
	}

	return e
}
