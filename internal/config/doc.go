// Package config loads the notifier's deploy-time configuration.
//
// Values come from a YAML file and may be overridden by environment
// variables:
//
//	AGENDAHOOK_WEBHOOK_URL       chat webhook the digest is posted to
//	AGENDAHOOK_CLIENT_SECRETS    Google OAuth client secrets JSON
//	AGENDAHOOK_CREDENTIAL_STORE  "file" or "valkey"
//	AGENDAHOOK_TOKEN_FILE        token file for the file store
//	AGENDAHOOK_LISTEN            trigger server address
//	AGENDAHOOK_SCHEDULE          optional cron expression
//	AGENDAHOOK_LOG_LEVEL         debug, info, warn or error
//	VALKEY_URL, VALKEY_PASSWORD, VALKEY_KEY_PREFIX, VALKEY_DB
//
// Example file:
//
//	webhook_url: https://discord.com/api/webhooks/...
//	calendars:
//	  - id: primary
//	    label: Personal
//	  - id: team@group.calendar.google.com
//	    label: Work
//	schedule: "0 18 * * *"
package config
