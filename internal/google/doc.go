// Package google obtains OAuth2 credentials for the Google Calendar API.
//
// A CredentialManager loads the persisted token from a CredentialStore,
// refreshes it when it has expired, and falls back to an Authorizer when no
// usable token exists. Two stores are provided: a JSON file on disk and a
// Valkey key for hosts without persistent storage. Two authorizers are
// provided: LocalServerAuthorizer runs the browser consent flow against a
// loopback redirect listener, and PreProvisionedAuthorizer refuses, for
// unattended deployments where the token is provisioned ahead of time with
// "agendahook auth".
package google
