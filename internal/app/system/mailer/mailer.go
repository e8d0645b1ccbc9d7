// internal/app/system/mailer/mailer.go
//
// Package mailer sends notification email over SMTP. Delivery is
// best-effort: lifecycle operations never fail because an email could
// not be sent.
package mailer

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is one outbound message. HTMLBody is optional; when present the
// message is sent as multipart/alternative.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP connection settings.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Mailer sends email through one SMTP server.
type Mailer struct {
	cfg  Config
	log  *zap.Logger
	send func(Email) error
}

// New returns a Mailer. A nil logger falls back to zap.L().
func New(cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.L()
	}
	m := &Mailer{cfg: cfg, log: log}
	m.send = m.smtpSend
	return m
}

// Send delivers one message synchronously.
func (m *Mailer) Send(e Email) error {
	if e.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	return m.send(e)
}

func (m *Mailer) smtpSend(e Email) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, e)
	return smtp.SendMail(addr, auth, m.cfg.From, []string{e.To}, msg)
}

// SendBestEffort dispatches one message on its own goroutine and logs
// the outcome instead of returning it. Used by lifecycle operations
// where notification failure or SMTP latency must not affect the
// operation.
func (m *Mailer) SendBestEffort(e Email) {
	go func() {
		if err := m.Send(e); err != nil {
			m.log.Warn("email delivery failed",
				zap.String("to", e.To),
				zap.String("subject", e.Subject),
				zap.Error(err))
			return
		}
		m.log.Info("email sent",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
	}()
}

func buildMessage(from string, e Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + e.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", e.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if e.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(e.TextBody)
		return []byte(b.String())
	}

	const boundary = "hackhub-alt-1"
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(e.TextBody)
	b.WriteString("\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(e.HTMLBody)
	b.WriteString("\r\n\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
