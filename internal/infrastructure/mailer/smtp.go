package mailer

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	defaultPort    = 587
	defaultTimeout = 15 * time.Second
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string // also the sender address
	Password string
	FromName string
	Timeout  time.Duration // bounds the dial, the greeting and each send
}

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPMailer sends plain-text reports over authenticated SMTP with mandatory STARTTLS
type SMTPMailer struct {
	from   mail.Address
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// New creates an SMTP mailer
func New(config Config, logger *zap.Logger) (*SMTPMailer, error) {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := gomail.NewClient(config.Host,
		gomail.WithPort(config.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(config.Username),
		gomail.WithPassword(config.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(config.Timeout),
		gomail.WithDialContextFunc(dialWithDeadline(config.Timeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		from: mail.Address{Name: config.FromName, Address: config.Username},
		send: func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		now:    time.Now,
		logger: logger.Named("mailer"),
	}, nil
}

// dialWithDeadline returns a dialer that sets each connection's deadline to the earlier
// of the dial context's deadline and now+timeout.
func dialWithDeadline(timeout time.Duration) gomail.DialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		deadline := time.Now().Add(timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// Send delivers body to a single recipient
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.from, *rcpt, subject, body, m.now())
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", rcpt.Address, err)
	}

	m.logger.Info("report sent", zap.String("to", rcpt.Address))
	return nil
}

// buildMessage renders a UTF-8 plain-text message with a base64 body
func buildMessage(from, to mail.Address, subject, body string, date time.Time) (*gomail.Msg, error) {
	msg := gomail.NewMsg(gomail.WithEncoding(gomail.EncodingB64), gomail.WithCharset(gomail.CharsetUTF8))
	if err := msg.FromFormat(from.Name, from.Address); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from.Address, err)
	}
	if err := msg.AddToFormat(to.Name, to.Address); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to.Address, err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(date)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}
