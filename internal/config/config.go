package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/updwatch/internal/cron"
	"github.com/loykin/updwatch/internal/encoding"
	"github.com/loykin/updwatch/internal/env"
	"github.com/loykin/updwatch/internal/logger"
	"github.com/loykin/updwatch/internal/oplog"
	"github.com/loykin/updwatch/internal/trigger"
)

// Validation failures carry one of these sentinels so callers can map them
// onto their error taxonomy without string matching.
var (
	ErrMissingKey   = errors.New("missing configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Config is the top-level TOML structure.
//
// Secrets (bot token, chat id, DSNs) may reference environment variables as
// ${VAR}; values from the [env] table and env_files override the process
// environment during expansion.

type Config struct {
	Server   string   `toml:"server" mapstructure:"server"`
	Env      []string `toml:"env" mapstructure:"env"`
	EnvFiles []string `toml:"env_files" mapstructure:"env_files"`

	Logs    LogsConfig    `toml:"logs" mapstructure:"logs"`
	State   StateConfig   `toml:"state" mapstructure:"state"`
	Markers MarkersConfig `toml:"markers" mapstructure:"markers"`
	Notify  NotifyConfig  `toml:"notify" mapstructure:"notify"`
	Audit   AuditConfig   `toml:"audit" mapstructure:"audit"`
	Store   StoreConfig   `toml:"store" mapstructure:"store"`
	Serve   ServeConfig   `toml:"serve" mapstructure:"serve"`
	Log     logger.Config `toml:"log" mapstructure:"log"`

	trigger *regexp.Regexp
}

// LogsConfig locates the vendor updater's log files.
type LogsConfig struct {
	Dir             string `toml:"dir" mapstructure:"dir"`
	EventLog        string `toml:"event_log" mapstructure:"event_log"`
	UpdateLogPrefix string `toml:"update_log_prefix" mapstructure:"update_log_prefix"`
	Encoding        string `toml:"encoding" mapstructure:"encoding"`
}

// StateConfig holds the checkpoint directory. Defaults to a dot directory
// next to the watched logs so a plain file copy of the host keeps the
// checkpoint with the logs.
type StateConfig struct {
	Dir string `toml:"dir" mapstructure:"dir"`
}

// MarkersConfig overrides the phrases searched in the detail log. Defaults
// match the stock vendor updater; localized installations override them.
type MarkersConfig struct {
	Start          string `toml:"start" mapstructure:"start"`
	Completion     string `toml:"completion" mapstructure:"completion"`
	VersionPhrase  string `toml:"version_phrase" mapstructure:"version_phrase"`
	TriggerPattern string `toml:"trigger_pattern" mapstructure:"trigger_pattern"`
}

type TelegramConfig struct {
	Token   string `toml:"token" mapstructure:"token"`
	ChatID  string `toml:"chat_id" mapstructure:"chat_id"`
	APIBase string `toml:"api_base" mapstructure:"api_base"`
}

type WebhookConfig struct {
	URL string `toml:"url" mapstructure:"url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram" mapstructure:"telegram"`
	Webhook  WebhookConfig  `toml:"webhook" mapstructure:"webhook"`
	Console  bool           `toml:"console" mapstructure:"console"`
}

type AuditConfig struct {
	DSN        string `toml:"dsn" mapstructure:"dsn"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type StoreConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// ServeConfig configures the long-running mode: the check schedule and the
// embedded HTTP API.
type ServeConfig struct {
	Listen   string           `toml:"listen" mapstructure:"listen"`
	BasePath string           `toml:"base_path" mapstructure:"base_path"`
	Schedule string           `toml:"schedule" mapstructure:"schedule"`
	CertFile string           `toml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string           `toml:"key_file" mapstructure:"key_file"`
	TLS      *ServeTLSConfig  `toml:"tls" mapstructure:"tls"`
	Auth     *ServeAuthConfig `toml:"auth" mapstructure:"auth"`
}

// ServeTLSConfig provisions the API's TLS material from a directory instead
// of an explicit cert_file/key_file pair, optionally generating a self-signed
// pair on first start.
type ServeTLSConfig struct {
	Dir          string   `toml:"dir" mapstructure:"dir"`
	AutoGenerate bool     `toml:"auto_generate" mapstructure:"auto_generate"`
	CommonName   string   `toml:"common_name" mapstructure:"common_name"`
	Organization string   `toml:"organization" mapstructure:"organization"`
	DNSNames     []string `toml:"dns_names" mapstructure:"dns_names"`
	IPAddresses  []string `toml:"ip_addresses" mapstructure:"ip_addresses"`
	ValidDays    int      `toml:"valid_days" mapstructure:"valid_days"`
	MinVersion   string   `toml:"min_version" mapstructure:"min_version"`
	MaxVersion   string   `toml:"max_version" mapstructure:"max_version"`
}

// ServeAuthConfig guards the API with bearer tokens. Any of the three
// credential sources may be set: a cleartext token, a bcrypt token_hash, or a
// jwt_secret for short-lived tokens minted by "updwatch token issue".
type ServeAuthConfig struct {
	Enabled   bool   `toml:"enabled" mapstructure:"enabled"`
	Token     string `toml:"token" mapstructure:"token"`
	TokenHash string `toml:"token_hash" mapstructure:"token_hash"`
	JWTSecret string `toml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTTTL    string `toml:"jwt_ttl" mapstructure:"jwt_ttl"`
}

// Load reads a TOML config file, applies defaults and expands ${VAR}
// references in secret-bearing fields. It does not validate; call Validate
// before running a check.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.expandEnv(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Logs.EventLog == "" {
		c.Logs.EventLog = "ezvit.log"
	}
	if c.Logs.UpdateLogPrefix == "" {
		c.Logs.UpdateLogPrefix = "update_"
	}
	if c.Logs.Encoding == "" {
		c.Logs.Encoding = "windows-1251"
	}
	if c.State.Dir == "" && c.Logs.Dir != "" {
		c.State.Dir = filepath.Join(c.Logs.Dir, ".updwatch")
	}
	if c.Markers.Start == "" {
		c.Markers.Start = oplog.DefaultStartMarker
	}
	if c.Markers.Completion == "" {
		c.Markers.Completion = oplog.DefaultCompletionMarker
	}
	if c.Markers.VersionPhrase == "" {
		c.Markers.VersionPhrase = oplog.DefaultVersionPhrase
	}
	if c.Markers.TriggerPattern == "" {
		c.Markers.TriggerPattern = trigger.DefaultPattern
	}
	if c.Serve.Listen == "" {
		c.Serve.Listen = ":8060"
	}
	if c.Serve.Schedule == "" {
		c.Serve.Schedule = "@every 15m"
	}
}

// expandEnv resolves ${VAR} in every field that may carry a secret or a
// host-specific path.
func (c *Config) expandEnv() error {
	e := env.New()
	e.FromOS()
	for _, p := range c.EnvFiles {
		pairs, err := LoadEnvFile(p)
		if err != nil {
			return err
		}
		e.Load(pairs)
	}
	e.Load(c.Env)

	fields := []*string{
		&c.Server,
		&c.Logs.Dir,
		&c.State.Dir,
		&c.Notify.Telegram.Token,
		&c.Notify.Telegram.ChatID,
		&c.Notify.Webhook.URL,
		&c.Audit.DSN,
		&c.Store.DSN,
		&c.Log.File,
	}
	if t := c.Serve.TLS; t != nil {
		fields = append(fields, &t.Dir)
	}
	if a := c.Serve.Auth; a != nil {
		fields = append(fields, &a.Token, &a.TokenHash, &a.JWTSecret)
	}
	for _, f := range fields {
		*f = e.Expand(*f)
	}
	return nil
}

// Validate checks required keys and value shapes, and caches the compiled
// trigger pattern on success.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("%w: server", ErrMissingKey)
	}
	if strings.TrimSpace(c.Logs.Dir) == "" {
		return fmt.Errorf("%w: logs.dir", ErrMissingKey)
	}
	if strings.TrimSpace(c.State.Dir) == "" {
		return fmt.Errorf("%w: state.dir", ErrMissingKey)
	}
	if c.Markers.Start == "" || c.Markers.Completion == "" {
		return fmt.Errorf("%w: markers must not be empty", ErrInvalidValue)
	}
	if c.Markers.VersionPhrase == "" {
		return fmt.Errorf("%w: markers.version_phrase must not be empty", ErrInvalidValue)
	}
	if !encoding.Known(c.Logs.Encoding) {
		return fmt.Errorf("%w: logs.encoding %q (supported: %s)", ErrInvalidValue, c.Logs.Encoding, strings.Join(encoding.Supported(), ", "))
	}
	re, err := trigger.Compile(c.Markers.TriggerPattern)
	if err != nil {
		return fmt.Errorf("%w: markers.trigger_pattern: %v", ErrInvalidValue, err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidValue, err)
	}
	if c.Serve.Schedule != "" {
		if _, err := cron.ParseEvery(c.Serve.Schedule); err != nil {
			return fmt.Errorf("%w: serve.schedule: %v", ErrInvalidValue, err)
		}
	}
	if (c.Serve.CertFile == "") != (c.Serve.KeyFile == "") {
		return fmt.Errorf("%w: serve.cert_file and serve.key_file must be set together", ErrInvalidValue)
	}
	if a := c.Serve.Auth; a != nil && a.Enabled {
		if a.Token == "" && a.TokenHash == "" && a.JWTSecret == "" {
			return fmt.Errorf("%w: serve.auth needs token, token_hash or jwt_secret", ErrMissingKey)
		}
		if a.JWTTTL != "" {
			if d, err := time.ParseDuration(a.JWTTTL); err != nil || d <= 0 {
				return fmt.Errorf("%w: serve.auth.jwt_ttl: want a positive duration like 24h", ErrInvalidValue)
			}
		}
	}
	c.trigger = re
	return nil
}

// TriggerRegexp returns the compiled trigger pattern. Valid after a
// successful Validate.
func (c *Config) TriggerRegexp() *regexp.Regexp { return c.trigger }

// EventLogPath is the full path of the updater's event log.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.Logs.Dir, c.Logs.EventLog)
}

// UpdateLogPath is the full path of the per-day detail log for an update that
// triggered at t, e.g. "update_2025-10-23.log".
func (c *Config) UpdateLogPath(t time.Time) string {
	return filepath.Join(c.Logs.Dir, c.Logs.UpdateLogPrefix+t.Format("2006-01-02")+".log")
}

// LoadEnvFile parses a simple .env file and returns a slice of "KEY=VALUE" entries.
// Lines starting with # are ignored; no export keyword, no quoting.
func LoadEnvFile(path string) ([]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i > 0 {
			out = append(out, strings.TrimSpace(line[:i])+"="+strings.TrimSpace(line[i+1:]))
		}
	}
	return out, nil
}
