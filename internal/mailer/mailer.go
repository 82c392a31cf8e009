package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"regwatch/internal/model"
)

var (
	ErrMissingCredential = errors.New("mail password is not configured")
	ErrNoRecipients      = errors.New("no mail recipients configured")
)

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	Subject    string
	Timeout    time.Duration
}

// Sender delivers the digest of new items as one plain-text email.
type Sender struct {
	cfg  Config
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSender(cfg Config) *Sender {
	if cfg.Subject == "" {
		cfg.Subject = "New Content"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &Sender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *Sender) Notify(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	if s.cfg.Password == "" {
		return ErrMissingCredential
	}

	msg, err := s.buildMessage(items)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *Sender) buildMessage(items []model.Item) (*mail.Msg, error) {
	if len(s.cfg.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := msg.To(s.cfg.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(s.cfg.Subject)
	msg.SetBodyString(mail.TypeTextPlain, model.FormatDigest(items))
	return msg, nil
}

func (s *Sender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
