package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	envConfigPath = "FILERELAY_CONFIG"

	defaultHistorySource  = "buffer"
	defaultHistoryLimit   = 100
	defaultBufferSize     = 500
	defaultSessionBackend = "memory"
	defaultStorage        = "alist"
	defaultStoragePath    = "/telegram"
	defaultGatewayHost    = "0.0.0.0"
	defaultGatewayPort    = 18790
	defaultWebhookPath    = "/"
)

// Config is the root runtime configuration. The file is optional; every
// setting can come from the environment.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	History  HistoryConfig  `json:"history"`
	Session  SessionConfig  `json:"session"`
	Storage  StorageConfig  `json:"storage"`
	Gateway  GatewayConfig  `json:"gateway"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// TelegramConfig configures the Bot API client.
type TelegramConfig struct {
	Token     string `json:"token" validate:"required"`
	APIServer string `json:"api_server,omitempty" validate:"omitempty,url"`
}

// HistoryConfig selects where channel posts are read from.
type HistoryConfig struct {
	Source     string `json:"source" validate:"oneof=updates web buffer"`
	Limit      int    `json:"limit" validate:"gte=1,lte=100"`
	WebBaseURL string `json:"web_base_url,omitempty" validate:"omitempty,url"`
	BufferSize int    `json:"buffer_size" validate:"gte=1"`
}

// SessionConfig selects the store that remembers each user's channel.
type SessionConfig struct {
	Backend string `json:"backend" validate:"oneof=memory file postgres"`
	Path    string `json:"path,omitempty" validate:"required_if=Backend file"`
	DSN     string `json:"dsn,omitempty" validate:"required_if=Backend postgres"`
}

// StorageConfig configures the backends /save can upload to.
type StorageConfig struct {
	Default string       `json:"default" validate:"oneof=alist webdav"`
	Alist   AlistConfig  `json:"alist"`
	WebDAV  WebDAVConfig `json:"webdav"`
}

// AlistConfig configures the Alist upload API.
type AlistConfig struct {
	URL   string `json:"url,omitempty" validate:"omitempty,url"`
	Token string `json:"token,omitempty"`
	Path  string `json:"path"`
}

// WebDAVConfig configures the WebDAV backend.
type WebDAVConfig struct {
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Path     string `json:"path"`
}

// GatewayConfig configures the HTTP listener for webhooks and status.
type GatewayConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port" validate:"gte=1,lte=65535"`
	WebhookPath string `json:"webhook_path" validate:"startswith=/"`
	PublicURL   string `json:"public_url,omitempty" validate:"omitempty,url"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Source:     defaultHistorySource,
			Limit:      defaultHistoryLimit,
			BufferSize: defaultBufferSize,
		},
		Session: SessionConfig{Backend: defaultSessionBackend},
		Storage: StorageConfig{
			Default: defaultStorage,
			Alist:   AlistConfig{Path: defaultStoragePath},
			WebDAV:  WebDAVConfig{Path: defaultStoragePath},
		},
		Gateway: GatewayConfig{
			Host:        defaultGatewayHost,
			Port:        defaultGatewayPort,
			WebhookPath: defaultWebhookPath,
		},
	}
}

// LoadConfig starts from Default, merges the config file when one is found,
// and applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fieldErr := range invalid {
				fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	setString(&cfg.Telegram.APIServer, "TELEGRAM_API_SERVER")

	setString(&cfg.History.Source, "HISTORY_SOURCE")
	setString(&cfg.History.WebBaseURL, "HISTORY_WEB_BASE_URL")

	setString(&cfg.Session.Backend, "SESSION_BACKEND")
	setString(&cfg.Session.Path, "SESSION_PATH")
	setString(&cfg.Session.DSN, "DATABASE_URL")

	setString(&cfg.Storage.Default, "STORAGE_DEFAULT")
	setString(&cfg.Storage.Alist.URL, "ALIST_URL")
	setString(&cfg.Storage.Alist.Token, "ALIST_TOKEN")
	setString(&cfg.Storage.Alist.Path, "ALIST_PATH")
	setString(&cfg.Storage.WebDAV.URL, "WEBDAV_URL")
	setString(&cfg.Storage.WebDAV.User, "WEBDAV_USER", "WEBDAV_USERNAME")
	setString(&cfg.Storage.WebDAV.Password, "WEBDAV_PASS", "WEBDAV_PASSWORD")
	setString(&cfg.Storage.WebDAV.Path, "WEBDAV_PATH")

	setString(&cfg.Gateway.Host, "GATEWAY_HOST")
	setString(&cfg.Gateway.WebhookPath, "WEBHOOK_PATH")
	setString(&cfg.Gateway.PublicURL, "WEBHOOK_URL")

	for _, item := range []struct {
		target *int
		name   string
	}{
		{target: &cfg.Gateway.Port, name: "GATEWAY_PORT"},
		{target: &cfg.History.Limit, name: "HISTORY_LIMIT"},
		{target: &cfg.History.BufferSize, name: "HISTORY_BUFFER_SIZE"},
	} {
		value := strings.TrimSpace(os.Getenv(item.name))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", item.name, err)
		}
		*item.target = parsed
	}

	cfg.History.Source = strings.ToLower(strings.TrimSpace(cfg.History.Source))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.Storage.Default = strings.ToLower(strings.TrimSpace(cfg.Storage.Default))

	return nil
}

// setString assigns the first non-empty env var among names.
func setString(target *string, names ...string) {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*target = value
			return
		}
	}
}

// findConfigPath resolves the active config file location. An empty path
// with a nil error means no file is present and env-only config is used.
//
// Precedence is FILERELAY_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
