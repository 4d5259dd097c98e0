// Package config loads livetrade settings from a YAML or JSON file and
// overlays environment variables on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/livetrade/alert"
	"github.com/rustyeddy/livetrade/broker/alpaca"
	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/market/polygon"
	"github.com/rustyeddy/livetrade/pkg/logger"
	"github.com/rustyeddy/livetrade/risk"
)

// Config is the complete runtime configuration.
type Config struct {
	Limits    risk.Limits            `json:"limits" yaml:"limits"`
	TWAP      execution.TWAPDefaults `json:"twap" yaml:"twap"`
	Alpaca    AlpacaConfig           `json:"alpaca" yaml:"alpaca"`
	Polygon   PolygonConfig          `json:"polygon" yaml:"polygon"`
	Alert     AlertConfig            `json:"alert" yaml:"alert"`
	Scheduler SchedulerConfig        `json:"scheduler" yaml:"scheduler"`
	State     StateConfig            `json:"state" yaml:"state"`
	Journal   JournalConfig          `json:"journal" yaml:"journal"`
	Paper     PaperConfig            `json:"paper" yaml:"paper"`
	Log       logger.Config          `json:"log" yaml:"log"`
}

// AlpacaConfig holds broker settings. Credentials come from the
// environment only and are never written back to disk.
type AlpacaConfig struct {
	Env            string `json:"env" yaml:"env"` // paper or live
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	APIKey         string `json:"-" yaml:"-"`
	APISecret      string `json:"-" yaml:"-"`
}

type PolygonConfig struct {
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	APIKey         string `json:"-" yaml:"-"`
}

type AlertConfig struct {
	LogPath    string `json:"log_path" yaml:"log_path"`
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	SMTPHost   string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty"`
	SMTPPort   int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser   string `json:"smtp_user,omitempty" yaml:"smtp_user,omitempty"`
	SMTPPass   string `json:"-" yaml:"-"`
	SMTPTLS    bool   `json:"smtp_tls" yaml:"smtp_tls"`
	EmailFrom  string `json:"email_from,omitempty" yaml:"email_from,omitempty"`
	EmailTo    string `json:"email_to,omitempty" yaml:"email_to,omitempty"`
}

// SchedulerConfig drives the polling loop.
type SchedulerConfig struct {
	IntervalSeconds int    `json:"interval_seconds" yaml:"interval_seconds"`
	EquityOpenOnly  bool   `json:"equity_open_only" yaml:"equity_open_only"`
	CryptoEnabled   bool   `json:"crypto_enabled" yaml:"crypto_enabled"`
	RunOnStartup    bool   `json:"run_on_startup" yaml:"run_on_startup"`
	LockTTLSeconds  int    `json:"lock_ttl_seconds,omitempty" yaml:"lock_ttl_seconds,omitempty"` // 0: max(120, 2*interval)
	LockPath        string `json:"lock_path" yaml:"lock_path"`
	Signature       string `json:"signature" yaml:"signature"`
	PlanPath        string `json:"plan_path,omitempty" yaml:"plan_path,omitempty"`
}

type StateConfig struct {
	Path string `json:"path" yaml:"path"`
}

type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"` // empty disables the journal
}

// PaperConfig seeds the in-process paper broker used by --paper.
type PaperConfig struct {
	Cash   float64            `json:"cash" yaml:"cash"`
	Prices map[string]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
}

// Default returns a configuration with no risk limits and the stock TWAP,
// scheduler and file locations.
func Default() *Config {
	return &Config{
		TWAP: execution.DefaultTWAP,
		Alpaca: AlpacaConfig{
			Env:            "paper",
			TimeoutSeconds: 10,
		},
		Polygon: PolygonConfig{TimeoutSeconds: 10},
		Alert: AlertConfig{
			LogPath:  "data/live_alerts.jsonl",
			SMTPPort: 587,
			SMTPTLS:  true,
		},
		Scheduler: SchedulerConfig{
			IntervalSeconds: 60,
			EquityOpenOnly:  true,
			CryptoEnabled:   true,
			RunOnStartup:    true,
			LockPath:        "data/live_run.lock",
			Signature:       "livetrade",
		},
		State:   StateConfig{Path: "data/live_state.json"},
		Journal: JournalConfig{DBPath: "data/journal.db"},
		Paper:   PaperConfig{Cash: 100000},
		Log:     logger.Config{Level: "info", MaxSize: 50, MaxBackups: 5, MaxAge: 30},
	}
}

// LoadFromFile loads configuration from a file on top of Default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	return cfg, nil
}

// Load reads path (when non-empty), applies the environment and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks ranges. Unset limits are always valid.
func (c *Config) Validate() error {
	for name, v := range map[string]*float64{
		"limits.max_order_notional_usd":    c.Limits.MaxOrderNotional,
		"limits.max_position_notional_usd": c.Limits.MaxPositionNotional,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	for name, v := range map[string]*float64{
		"limits.max_order_pct_equity":    c.Limits.MaxOrderPctEquity,
		"limits.max_position_pct_equity": c.Limits.MaxPositionPctEquity,
		"limits.max_daily_loss_pct":      c.Limits.MaxDailyLossPct,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if c.TWAP.Slices < 1 {
		return fmt.Errorf("twap.slices must be at least 1")
	}
	if c.TWAP.IntervalSeconds < 0 {
		return fmt.Errorf("twap.interval_seconds must not be negative")
	}
	if _, err := alpaca.BaseURL(c.Alpaca.Env); err != nil && c.Alpaca.BaseURL == "" {
		return fmt.Errorf("alpaca.env: %w", err)
	}
	if c.Scheduler.IntervalSeconds < 1 {
		return fmt.Errorf("scheduler.interval_seconds must be positive")
	}
	if c.Scheduler.LockTTLSeconds < 0 {
		return fmt.Errorf("scheduler.lock_ttl_seconds must not be negative")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	if c.Paper.Cash < 0 {
		return fmt.Errorf("paper.cash must not be negative")
	}
	return nil
}

// AlpacaClientConfig resolves the adapter settings.
func (c *Config) AlpacaClientConfig() alpaca.Config {
	base := c.Alpaca.BaseURL
	if base == "" {
		base, _ = alpaca.BaseURL(c.Alpaca.Env)
	}
	return alpaca.Config{
		APIKey:    c.Alpaca.APIKey,
		APISecret: c.Alpaca.APISecret,
		BaseURL:   base,
		Timeout:   seconds(c.Alpaca.TimeoutSeconds),
	}
}

func (c *Config) PolygonClientConfig() polygon.Config {
	return polygon.Config{
		APIKey:  c.Polygon.APIKey,
		BaseURL: c.Polygon.BaseURL,
		Timeout: seconds(c.Polygon.TimeoutSeconds),
	}
}

func (c *Config) AlertNotifierConfig() alert.Config {
	return alert.Config{
		LogPath:    c.Alert.LogPath,
		WebhookURL: c.Alert.WebhookURL,
		SMTP: alert.SMTPConfig{
			Host: c.Alert.SMTPHost,
			Port: c.Alert.SMTPPort,
			User: c.Alert.SMTPUser,
			Pass: c.Alert.SMTPPass,
			TLS:  c.Alert.SMTPTLS,
			From: c.Alert.EmailFrom,
			To:   c.Alert.EmailTo,
		},
	}
}

// LockTTL is the configured TTL or max(120s, 2*interval).
func (c *Config) LockTTL() time.Duration {
	if c.Scheduler.LockTTLSeconds > 0 {
		return seconds(c.Scheduler.LockTTLSeconds)
	}
	return max(120*time.Second, 2*seconds(c.Scheduler.IntervalSeconds))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
