package mail

import (
	"context"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"verein-backend/internal/platform/db"
)

// Sender delivers a single plain message. Letters use it after the
// message rows are committed.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	dialer *gomail.Dialer
	from   string
}

// New returns nil when mail is disabled; callers treat a nil Sender as "do not mail".
func New(cfg db.MailConfig) Sender {
	if !cfg.Enabled || cfg.Host == "" {
		return nil
	}
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Service) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)
	message.AddAlternative("text/html", toHTML(body))
	return m.dialer.DialAndSend(message)
}

func toHTML(body string) string {
	var sb strings.Builder
	sb.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 640px; margin: auto;">`)
	for _, para := range strings.Split(body, "\n\n") {
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		sb.WriteString("</p>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
