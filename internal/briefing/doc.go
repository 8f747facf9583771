// Package briefing runs the daily digest pipeline and maps each run to the
// status and message reported back to whatever triggered it.
package briefing
