package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	mailtpl "github.com/oksasatya/adhunt/pkg/mailer/templates"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun wraps Mailgun client configuration.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

// Send sends an email via Mailgun. html is optional; if provided it will be used as HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	msg := client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := client.Send(c, msg)
	return err
}

// Deliver renders job.Template when set and hands the result to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("email job without recipient")
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("render %s: %w", job.Template, err)
		}
	}
	return s.Send(ctx, job.To, subject, text, html)
}

var _ Sender = (*Mailgun)(nil)
