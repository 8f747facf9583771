package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultScope is requested when no scope is configured. The digest only
// reads events, so nothing broader than read-only calendar access is asked for.
const DefaultScope = calendar.CalendarReadonlyScope
