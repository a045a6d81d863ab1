package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/sudo-init-do/servicehub/internal/config"
)

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks the delivery backend from cfg.Provider. An unconfigured
// SMTP backend falls back to logging so local runs still work.
func NewMailer(cfg config.MailConfig) Mailer {
	switch cfg.Provider {
	case "plunk":
		return NewPlunkMailer(cfg.PlunkAPIKey, cfg.From, cfg.ReplyTo, "")
	case "log":
		return LogMailer{}
	}
	m := &SMTPMailer{cfg: cfg}
	if err := m.configured(); err != nil {
		log.Printf("[notify] %v, emails will be logged", err)
		return LogMailer{}
	}
	return m
}

// LogMailer writes emails to the log.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[notify] email -> to=%s subject=%q", to, subject)
	return nil
}

// SMTPMailer sends plain text or HTML email over implicit TLS.
type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) configured() error {
	c := m.cfg
	if c.SMTPHost == "" || c.SMTPPort == "" || c.SMTPUsername == "" || c.SMTPPassword == "" || c.From == "" {
		return fmt.Errorf("smtp not configured: set SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, MAIL_FROM (or set MAIL_PROVIDER=plunk)")
	}
	return nil
}

func buildMessage(from, replyTo, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	lb := strings.ToLower(body)
	if strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html") {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	b.WriteString("\r\n" + body + "\r\n")
	return b.String()
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	c := m.cfg
	addr := c.SMTPHost + ":" + c.SMTPPort

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: c.SMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", c.SMTPUsername, c.SMTPPassword, c.SMTPHost)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(c.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(buildMessage(c.From, c.ReplyTo, to, subject, body))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}
