// Package mailer delivers transactional e-mail through SendGrid.
package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

// Attachment is a file carried by a Message. Setting ContentID inlines it.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

// Message is one outbound e-mail.
type Message struct {
	ToEmail     string
	ToName      string
	Subject     string
	PlainText   string
	HTML        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer sends messages with the SendGrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logg   *logger.Logger
}

func NewSendgrid(cfg config.SendgridConfig, logg *logger.Logger) (*SendgridMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logg:   logg,
	}, nil
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	payload, err := buildMail(m.from, msg)
	if err != nil {
		return err
	}
	resp, err := m.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "subject", msg.Subject), "email delivered")
	}
	return nil
}

func buildMail(from *mail.Email, msg Message) (*mail.SGMailV3, error) {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return nil, errors.New("recipient email is required")
	}
	if msg.PlainText == "" && msg.HTML == "" {
		return nil, errors.New("email body is required")
	}
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	plain := msg.PlainText
	if plain == "" {
		plain = " "
	}
	html := msg.HTML
	if html == "" {
		html = plain
	}
	out := mail.NewSingleEmail(from, msg.Subject, to, plain, html)
	for _, att := range msg.Attachments {
		a := mail.NewAttachment()
		a.SetFilename(att.Filename)
		a.SetType(att.ContentType)
		a.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		if att.ContentID != "" {
			a.SetDisposition("inline")
			a.SetContentID(att.ContentID)
		} else {
			a.SetDisposition("attachment")
		}
		out.AddAttachment(a)
	}
	return out, nil
}

// LogMailer records messages instead of sending them. Used when no SendGrid key is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}
	if m.logg != nil {
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"to":          msg.ToEmail,
			"subject":     msg.Subject,
			"attachments": len(msg.Attachments),
		})
		m.logg.Info(logCtx, "email delivery skipped (log mailer)")
	}
	return nil
}

// New picks SendGrid when configured and falls back to the log mailer.
func New(cfg config.SendgridConfig, logg *logger.Logger) (Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLogMailer(logg), nil
	}
	return NewSendgrid(cfg, logg)
}
