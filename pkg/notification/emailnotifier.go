package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP connection settings for the email notifier
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// EmailNotifier delivers notices over SMTP
type EmailNotifier struct {
	config SMTPConfig
	client *mail.Client
}

// NewEmailNotifier creates an email notifier from SMTP settings
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &EmailNotifier{config: config, client: client}, nil
}

// Send renders the notice body and delivers it to the recipient
func (e *EmailNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	tmpl, err := template.New(string(noticeType)).Parse(noticeTemplate.Text)
	if err != nil {
		return fmt.Errorf("failed to parse notice template: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, notification.Data); err != nil {
		return fmt.Errorf("failed to render notice template: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(e.config.From); err != nil {
		return fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(notification.To); err != nil {
		return fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject(noticeTemplate.Subject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := e.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Security notice sent", "type", noticeType, "to", notification.To)
	return nil
}
