package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends plain-text mail through one SMTP relay. A new connection
// is dialled per message.
type SMTPMailer struct {
	client *mail.Client
}

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	opts := []mail.Option{mail.WithPort(port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: c}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, in Message) error {
	msg, err := buildMsg(in)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMsg(in Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(in.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(in.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(in.Subject)
	msg.SetBodyString(mail.TypeTextPlain, in.Body)
	return msg, nil
}
