// Package mail renders transactional emails and delivers them over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	netmail "net/mail"
	"net/textproto"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrRecipientRejected is returned when the mail server refuses a recipient.
var ErrRecipientRejected = errors.New("recipient rejected by mail server")

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL selects implicit TLS; otherwise STARTTLS is used when offered.
	SSL bool
}

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	Dial() (gomail.SendCloser, error)
}

type SMTPMailer struct {
	cfg    SMTPConfig
	dialer dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{cfg: cfg, dialer: d}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	from, err := netmail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("parse sender: %w", err)
	}

	// DialAndSend would flatten the RCPT reply into a string.
	sc, err := m.dialer.Dial()
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer sc.Close()

	if err := sc.Send(from.Address, []string{msg.To}, gm); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps the permanent mailbox replies (550-553) to
// ErrRecipientRejected.
func classify(err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) && proto.Code >= 550 && proto.Code <= 553 {
		return fmt.Errorf("%w: %d %s", ErrRecipientRejected, proto.Code, proto.Msg)
	}
	return fmt.Errorf("send mail: %w", err)
}

// LogMailer writes messages to the logger instead of delivering them.
// Used when no SMTP host is configured.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("mail delivery disabled, message dropped")
	return nil
}

type ResetPasswordData struct {
	AppName   string
	Name      string
	Email     string
	Link      string
	ExpiresIn string
}

// Renderer executes the embedded HTML templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) ResetPassword(to string, data ResetPasswordData) (Message, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "reset_password.html", data); err != nil {
		return Message{}, fmt.Errorf("render reset_password: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s password reset", data.AppName),
		HTML:    buf.String(),
	}, nil
}
