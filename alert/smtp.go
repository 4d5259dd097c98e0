package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

const defaultSMTPPort = 587

func sendMail(ctx context.Context, cfg SMTPConfig, subject, body string) error {
	m, err := newMessage(cfg, subject, body)
	if err != nil {
		return err
	}
	c, err := mail.NewClient(cfg.Host, mailOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}

func newMessage(cfg SMTPConfig, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(recipients(cfg.To)...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

func mailOptions(cfg SMTPConfig) []mail.Option {
	port := cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(DefaultTimeout),
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.User != "" && cfg.Pass != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}
	return opts
}

// recipients splits a comma separated To list.
func recipients(to string) []string {
	var out []string
	for _, a := range strings.Split(to, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
