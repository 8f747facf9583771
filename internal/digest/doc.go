// Package digest turns a day's calendar events into the Markdown message
// posted to the chat webhook.
package digest
