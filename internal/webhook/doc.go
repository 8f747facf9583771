// Package webhook delivers digest messages to a Discord-compatible chat
// webhook. A delivery counts as successful only on 204 No Content.
package webhook
