// Package alert fans operational events out to a JSONL log, a webhook and
// email. Delivery is best effort: failures are logged, never returned.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/pkg/clock"
)

const (
	EventRiskLimit     = "risk_limit_triggered"
	EventRunError      = "live_run_error"
	EventDeliveryError = "alert_delivery_error"

	DefaultTimeout = 10 * time.Second
	messagePrefix  = "[livetrade]"
)

// Sink receives alerts. Notify must not block the caller for long and must
// not fail the operation that raised the alert.
type Sink interface {
	Notify(ctx context.Context, event string, details map[string]any)
}

// Nop discards every alert.
type Nop struct{}

func (Nop) Notify(context.Context, string, map[string]any) {}

type SMTPConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	User string `json:"user,omitempty" yaml:"user,omitempty"`
	Pass string `json:"-" yaml:"-"`
	TLS  bool   `json:"tls" yaml:"tls"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && c.To != ""
}

type Config struct {
	LogPath    string        `json:"log_path" yaml:"log_path"`
	WebhookURL string        `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	SMTP       SMTPConfig    `json:"smtp" yaml:"smtp"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Entry is one line of the alert log.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Details   map[string]any `json:"details"`
}

type webhookPayload struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Notifier is the production Sink.
type Notifier struct {
	cfg   Config
	http  *resty.Client
	clock clock.Clock
	log   *logrus.Entry

	// mail is swapped out in tests.
	mail func(ctx context.Context, cfg SMTPConfig, subject, body string) error

	mu sync.Mutex
	wg sync.WaitGroup
}

var _ Sink = (*Notifier)(nil)

func NewNotifier(cfg Config, clk clock.Clock) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Notifier{
		cfg:   cfg,
		http:  resty.New().SetTimeout(cfg.Timeout).SetHeader("Content-Type", "application/json"),
		clock: clk,
		log:   logrus.WithField("component", "alert"),
		mail:  sendMail,
	}
}

// Notify records the event in the log, then pushes it to the webhook and
// email channels in the background. Use Wait to drain pending deliveries.
func (n *Notifier) Notify(ctx context.Context, event string, details map[string]any) {
	ts := n.clock.Now().UTC().Format(time.RFC3339Nano)
	if details == nil {
		details = map[string]any{}
	}

	n.log.WithFields(logrus.Fields{"event": event, "details": details}).Warn("alert")
	n.append(Entry{Timestamp: ts, Event: event, Details: details})

	if n.cfg.WebhookURL == "" && !n.cfg.SMTP.Enabled() {
		return
	}
	// remote delivery outlives the caller's ctx and is bounded by cfg.Timeout
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(context.WithoutCancel(ctx), ts, event, details)
	}()
}

// Wait blocks until every pending webhook and email delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, ts, event string, details map[string]any) {
	msg := fmt.Sprintf("%s %s", messagePrefix, event)
	webhookErr := n.webhook(ctx, msg, details)
	emailErr := n.email(ctx, msg, details)
	if webhookErr == nil && emailErr == nil {
		return
	}

	n.append(Entry{
		Timestamp: ts,
		Event:     EventDeliveryError,
		Details: map[string]any{
			"webhook_error": errString(webhookErr),
			"email_error":   errString(emailErr),
		},
	})
}

func (n *Notifier) webhook(ctx context.Context, msg string, details map[string]any) error {
	if n.cfg.WebhookURL == "" {
		return nil
	}
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(webhookPayload{Message: msg, Details: details}).
		Post(n.cfg.WebhookURL)
	if err != nil {
		n.log.WithError(err).Error("webhook delivery failed")
		return fmt.Errorf("webhook exception: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("webhook error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
		n.log.WithError(err).Error("webhook delivery failed")
		return err
	}
	return nil
}

func (n *Notifier) email(ctx context.Context, subject string, details map[string]any) error {
	if !n.cfg.SMTP.Enabled() {
		return nil
	}
	body, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return fmt.Errorf("email body: %w", err)
	}
	if err := n.mail(ctx, n.cfg.SMTP, subject, string(body)); err != nil {
		n.log.WithError(err).Error("email delivery failed")
		return fmt.Errorf("email exception: %w", err)
	}
	return nil
}

// append writes one JSON line. Failures are logged only.
func (n *Notifier) append(e Entry) {
	if n.cfg.LogPath == "" {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		n.log.WithError(err).Error("encode alert entry")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(n.cfg.LogPath), 0o755); err != nil {
		n.log.WithError(err).Error("create alert log dir")
		return
	}
	f, err := os.OpenFile(n.cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		n.log.WithError(err).Error("open alert log")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		n.log.WithError(err).Error("write alert log")
	}
}

// ReadLog returns every entry in a JSONL alert log. Malformed lines are skipped.
func ReadLog(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
