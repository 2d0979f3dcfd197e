// Package mailer is the outbound edge for notifications. The engine treats
// it as an external collaborator: it receives fully resolved content and
// its failures never roll back reconciliation.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/lumifin/reconciler/pkg/config"
)

// Dispatcher transmits a resolved message to a recipient.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpDispatcher struct {
	cfg cfgpkg.SMTPConfig
	log *zap.SugaredLogger
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) Dispatcher {
	return &smtpDispatcher{cfg: cfg.Notify.SMTP, log: log}
}

func (d *smtpDispatcher) Send(ctx context.Context, to, subject, body string) error {
	sender := d.cfg.Sender
	if sender == "" {
		sender = "no-reply@localhost"
	}

	var auth smtp.Auth
	if d.cfg.Username != "" && d.cfg.Password != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, sender, []string{to}, msg); err != nil {
		d.log.Errorw("smtp send failed", "to", to, "error", err.Error())
		return err
	}
	d.log.Infow("email sent", "to", to)
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
