package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/teemow/agendahook/internal/calendar"
)

// Credential store backends.
const (
	StoreFile   = "file"
	StoreValkey = "valkey"
)

const (
	// DefaultPath is the config file read when --config is not given.
	DefaultPath = "agendahook.yaml"

	// DefaultScope is the read-only Google Calendar events scope.
	DefaultScope = "https://www.googleapis.com/auth/calendar.readonly"

	DefaultClientSecretsFile = "client_secret.json"
	DefaultTokenFile         = "token.json"
	DefaultListen            = ":8080"
	DefaultValkeyKeyPrefix   = "agendahook:"
)

// CalendarConfig is one configured calendar source.
type CalendarConfig struct {
	// ID is the Google Calendar ID (e.g. "primary" or "abc@group.calendar.google.com").
	ID string `yaml:"id"`
	// Label is the display name appended to every digest line from this calendar.
	Label string `yaml:"label"`
}

// ValkeyConfig holds connection settings for the Valkey credential store.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL string `yaml:"url"`

	// Password is the optional password for Valkey authentication
	Password string `yaml:"password"`

	// KeyPrefix is the prefix for all Valkey keys (default: "agendahook:")
	KeyPrefix string `yaml:"key_prefix"`

	// DB is the Valkey database number (default: 0)
	DB int `yaml:"db"`
}

// CredentialsConfig selects where the OAuth token is persisted between runs.
type CredentialsConfig struct {
	// Store is the backend type: "file" or "valkey" (default: "file")
	Store string `yaml:"store"`

	// File is the token file path used by the file backend.
	File string `yaml:"file"`

	Valkey ValkeyConfig `yaml:"valkey"`
}

// Config is the deploy-time configuration of the notifier. It is loaded once
// at startup and never mutated afterwards.
type Config struct {
	// WebhookURL is the chat webhook the digest is posted to. Left empty it
	// is reported per run rather than rejected at load time.
	WebhookURL string `yaml:"webhook_url"`

	Calendars []CalendarConfig `yaml:"calendars"`

	// Scope is the OAuth scope requested from Google.
	Scope string `yaml:"scope"`

	// ClientSecretsFile is the "installed app" client secrets JSON
	// downloaded from the Google Cloud console.
	ClientSecretsFile string `yaml:"client_secrets_file"`

	Credentials CredentialsConfig `yaml:"credentials"`

	// Listen is the trigger server address used by "serve".
	Listen string `yaml:"listen"`

	// Schedule is an optional cron expression; when set, "serve" also runs
	// the pipeline on this schedule.
	Schedule string `yaml:"schedule"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Scope:             DefaultScope,
		ClientSecretsFile: DefaultClientSecretsFile,
		Credentials: CredentialsConfig{
			Store: StoreFile,
			File:  DefaultTokenFile,
			Valkey: ValkeyConfig{
				KeyPrefix: DefaultValkeyKeyPrefix,
			},
		},
		Listen:   DefaultListen,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. A missing file is not an error as long as the
// environment supplies enough to pass validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables when they are set.
func (c *Config) applyEnv() {
	c.WebhookURL = getEnvOrDefault("AGENDAHOOK_WEBHOOK_URL", c.WebhookURL)
	c.ClientSecretsFile = getEnvOrDefault("AGENDAHOOK_CLIENT_SECRETS", c.ClientSecretsFile)
	c.Credentials.Store = getEnvOrDefault("AGENDAHOOK_CREDENTIAL_STORE", c.Credentials.Store)
	c.Credentials.File = getEnvOrDefault("AGENDAHOOK_TOKEN_FILE", c.Credentials.File)
	c.Credentials.Valkey.URL = getEnvOrDefault("VALKEY_URL", c.Credentials.Valkey.URL)
	c.Credentials.Valkey.Password = getEnvOrDefault("VALKEY_PASSWORD", c.Credentials.Valkey.Password)
	c.Credentials.Valkey.KeyPrefix = getEnvOrDefault("VALKEY_KEY_PREFIX", c.Credentials.Valkey.KeyPrefix)
	c.Credentials.Valkey.DB = getEnvIntOrDefault("VALKEY_DB", c.Credentials.Valkey.DB)
	c.Listen = getEnvOrDefault("AGENDAHOOK_LISTEN", c.Listen)
	c.Schedule = getEnvOrDefault("AGENDAHOOK_SCHEDULE", c.Schedule)
	c.LogLevel = getEnvOrDefault("AGENDAHOOK_LOG_LEVEL", c.LogLevel)
}

// normalize fills in zero values left by a partial config file.
func (c *Config) normalize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.ClientSecretsFile == "" {
		c.ClientSecretsFile = DefaultClientSecretsFile
	}
	if c.Credentials.Store == "" {
		c.Credentials.Store = StoreFile
	}
	c.Credentials.Store = strings.ToLower(c.Credentials.Store)
	if c.Credentials.File == "" {
		c.Credentials.File = DefaultTokenFile
	}
	if c.Credentials.Valkey.KeyPrefix == "" {
		c.Credentials.Valkey.KeyPrefix = DefaultValkeyKeyPrefix
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for values that can never work.
func (c *Config) Validate() error {
	if len(c.Calendars) == 0 {
		return errors.New("at least one calendar must be configured")
	}

	labels := make(map[string]bool, len(c.Calendars))
	for i, cal := range c.Calendars {
		if strings.TrimSpace(cal.ID) == "" {
			return fmt.Errorf("calendar %d: id is required", i)
		}
		if strings.TrimSpace(cal.Label) == "" {
			return fmt.Errorf("calendar %d (%s): label is required", i, cal.ID)
		}
		if labels[cal.Label] {
			return fmt.Errorf("calendar %d: duplicate label %q", i, cal.Label)
		}
		labels[cal.Label] = true
	}

	switch c.Credentials.Store {
	case StoreFile:
		if c.Credentials.File == "" {
			return errors.New("credentials.file is required for the file store")
		}
	case StoreValkey:
		if c.Credentials.Valkey.URL == "" {
			return errors.New("credentials.valkey.url is required for the valkey store (or set VALKEY_URL)")
		}
	default:
		return fmt.Errorf("invalid credential store %q, must be one of: file, valkey", c.Credentials.Store)
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Sources returns the configured calendars in order.
func (c *Config) Sources() []calendar.Source {
	sources := make([]calendar.Source, 0, len(c.Calendars))
	for _, cal := range c.Calendars {
		sources = append(sources, calendar.Source{ID: cal.ID, Label: cal.Label})
	}
	return sources
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the int value of an environment variable or a default value.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
