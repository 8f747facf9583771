// Package calendar fetches the next day's events from Google Calendar.
//
// Window computes the half-open UTC day after a reference time. A Fetcher
// queries each configured Source through an EventLister (normally a Client
// backed by the Calendar v3 API) and returns the events in source order,
// each stamped with the label of the calendar it came from. Failures are
// absorbed per calendar.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, tokenSource, metrics)
//	if err != nil {
//	    return err
//	}
//	events := calendar.NewFetcher(logger, metrics).Fetch(ctx, client, sources, time.Now())
package calendar
