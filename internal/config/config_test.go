package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendahook/internal/calendar"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agendahook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
webhook_url: https://discord.example/api/webhooks/1/abc
calendars:
  - id: primary
    label: Personal
  - id: team@group.calendar.google.com
    label: Work
schedule: "0 18 * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://discord.example/api/webhooks/1/abc", cfg.WebhookURL)
	assert.Equal(t, DefaultScope, cfg.Scope)
	assert.Equal(t, StoreFile, cfg.Credentials.Store)
	assert.Equal(t, DefaultTokenFile, cfg.Credentials.File)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "0 18 * * *", cfg.Schedule)
	assert.Equal(t, []calendar.Source{
		{ID: "primary", Label: "Personal"},
		{ID: "team@group.calendar.google.com", Label: "Work"},
	}, cfg.Sources())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
webhook_url: https://from-file.example
calendars:
  - id: primary
    label: Personal
`)
	t.Setenv("AGENDAHOOK_WEBHOOK_URL", "https://from-env.example")
	t.Setenv("AGENDAHOOK_TOKEN_FILE", "/var/lib/agendahook/token.json")
	t.Setenv("AGENDAHOOK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example", cfg.WebhookURL)
	assert.Equal(t, "/var/lib/agendahook/token.json", cfg.Credentials.File)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_UnsetWebhookIsNotAnError(t *testing.T) {
	path := writeConfig(t, `
calendars:
  - id: primary
    label: Personal
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.WebhookURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one calendar")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "calendars: [this is: not yaml")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Calendars = []CalendarConfig{{ID: "primary", Label: "Personal"}}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{"valid", func(*Config) {}, ""},
		{"no calendars", func(c *Config) { c.Calendars = nil }, "at least one calendar"},
		{"empty id", func(c *Config) { c.Calendars[0].ID = " " }, "id is required"},
		{"empty label", func(c *Config) { c.Calendars[0].Label = "" }, "label is required"},
		{
			"duplicate label",
			func(c *Config) {
				c.Calendars = append(c.Calendars, CalendarConfig{ID: "other", Label: "Personal"})
			},
			"duplicate label",
		},
		{"unknown store", func(c *Config) { c.Credentials.Store = "s3" }, "invalid credential store"},
		{"valkey without url", func(c *Config) { c.Credentials.Store = StoreValkey }, "valkey.url is required"},
		{"bad schedule", func(c *Config) { c.Schedule = "every day" }, "invalid schedule"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
