package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			logrus.WithField("path", p).Debug("no .env loaded")
		}
	}
}

// ApplyEnv overlays environment variables. Numeric values that do not
// parse are treated as absent and leave the file value in place.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	e := envReader{lookup: lookup}

	e.floatPtr("MAX_ORDER_NOTIONAL_USD", &c.Limits.MaxOrderNotional)
	e.floatPtr("MAX_ORDER_PCT_EQUITY", &c.Limits.MaxOrderPctEquity)
	e.floatPtr("MAX_POSITION_NOTIONAL_USD", &c.Limits.MaxPositionNotional)
	e.floatPtr("MAX_POSITION_PCT_EQUITY", &c.Limits.MaxPositionPctEquity)
	e.floatPtr("MAX_DAILY_LOSS_PCT", &c.Limits.MaxDailyLossPct)
	e.bool("ALLOW_SHORT", &c.Limits.AllowShort)

	e.int("TWAP_SLICES", &c.TWAP.Slices)
	e.int("TWAP_INTERVAL_SECONDS", &c.TWAP.IntervalSeconds)

	e.str("ALPACA_API_KEY", &c.Alpaca.APIKey)
	e.str("ALPACA_API_SECRET", &c.Alpaca.APISecret)
	e.str("ALPACA_ENV", &c.Alpaca.Env)
	e.str("ALPACA_BASE_URL", &c.Alpaca.BaseURL)
	e.int("ALPACA_TIMEOUT_SECONDS", &c.Alpaca.TimeoutSeconds)

	e.str("POLYGON_API_KEY", &c.Polygon.APIKey)
	e.str("POLYGON_BASE_URL", &c.Polygon.BaseURL)

	e.str("ALERT_LOG_PATH", &c.Alert.LogPath)
	e.str("ALERT_WEBHOOK_URL", &c.Alert.WebhookURL)
	e.str("ALERT_SMTP_HOST", &c.Alert.SMTPHost)
	e.int("ALERT_SMTP_PORT", &c.Alert.SMTPPort)
	e.str("ALERT_SMTP_USER", &c.Alert.SMTPUser)
	e.str("ALERT_SMTP_PASS", &c.Alert.SMTPPass)
	e.bool("ALERT_SMTP_TLS", &c.Alert.SMTPTLS)
	e.str("ALERT_EMAIL_FROM", &c.Alert.EmailFrom)
	e.str("ALERT_EMAIL_TO", &c.Alert.EmailTo)

	e.int("LIVE_SCHEDULER_INTERVAL_SECONDS", &c.Scheduler.IntervalSeconds)
	e.bool("LIVE_EQUITY_OPEN_ONLY", &c.Scheduler.EquityOpenOnly)
	e.bool("LIVE_CRYPTO_ENABLED", &c.Scheduler.CryptoEnabled)
	e.bool("LIVE_RUN_ON_STARTUP", &c.Scheduler.RunOnStartup)
	e.int("LIVE_RUN_LOCK_TTL_SECONDS", &c.Scheduler.LockTTLSeconds)
	e.str("LIVE_SIGNATURE", &c.Scheduler.Signature)
	e.str("LIVE_PLAN_PATH", &c.Scheduler.PlanPath)

	e.str("LIVE_STATE_PATH", &c.State.Path)
	e.str("LIVE_JOURNAL_PATH", &c.Journal.DBPath)
	e.str("LOG_LEVEL", &c.Log.Level)
}

type envReader struct {
	lookup LookupFunc
}

func (e envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e envReader) floatPtr(key string, dst **float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logrus.WithField("key", key).WithField("value", v).Warn("ignoring unparseable number")
		return
	}
	*dst = &f
}

func (e envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).WithField("value", v).Warn("ignoring unparseable integer")
		return
	}
	*dst = n
}

// bool accepts true/false, 1/0, yes/no and on/off.
func (e envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		logrus.WithField("key", key).WithField("value", v).Warn("ignoring unparseable bool")
	}
}
