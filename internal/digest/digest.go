package digest

import (
	"strings"

	"github.com/teemow/agendahook/internal/calendar"
)

const (
	// Heading opens every digest.
	Heading = "# Tomorrow's schedule:"

	// EmptyLine replaces the event list when there is nothing scheduled.
	EmptyLine = "* No events scheduled."

	// TimeLayout renders a start time as a zero-padded 12-hour clock.
	TimeLayout = "03:04 PM"

	// NoTitle is shown for events without a summary.
	NoTitle = "(No title)"
)

// Format renders events as a chat-ready Markdown digest, one bullet per
// event in the given order:
//
//	# Tomorrow's schedule:
//
//	* 10:00 AM - Standup (Work)
//
// Each start time is shown in the event's own time zone.
func Format(events []calendar.Event) string {
	var b strings.Builder
	b.WriteString(Heading)
	b.WriteString("\n\n")

	if len(events) == 0 {
		b.WriteString(EmptyLine)
		return b.String()
	}

	for _, ev := range events {
		b.WriteString("* ")
		b.WriteString(StartTime(ev.Start))
		b.WriteString(" - ")
		b.WriteString(title(ev.Summary))
		b.WriteString(" (")
		b.WriteString(ev.CalendarLabel)
		b.WriteString(")\n")
	}
	return b.String()
}

// StartTime renders the clock time of an event start in its own zone. All-day
// events show midnight. A start that cannot be parsed is shown verbatim.
func StartTime(t calendar.EventTime) string {
	at, err := t.Instant()
	if err != nil {
		return t.Raw()
	}
	return at.In(t.Location()).Format(TimeLayout)
}

func title(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return NoTitle
	}
	return summary
}

