package mailer

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
)

func TestBuildMailInlinesAttachmentWithContentID(t *testing.T) {
	from := mail.NewEmail("Tablebook", "tickets@tablebook.test")
	out, err := buildMail(from, Message{
		ToEmail:   "guest@example.com",
		ToName:    "Guest",
		Subject:   "Your ticket",
		PlainText: "code ABC",
		Attachments: []Attachment{{
			Filename:    "ticket.png",
			ContentType: "image/png",
			ContentID:   "ticket-qr",
			Content:     []byte{0x89, 0x50},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "Your ticket", out.Subject)
	require.Len(t, out.Attachments, 1)
	require.Equal(t, "inline", out.Attachments[0].Disposition)
	require.Equal(t, "ticket-qr", out.Attachments[0].ContentID)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x89, 0x50}), out.Attachments[0].Content)
	require.Len(t, out.Personalizations, 1)
	require.Equal(t, "guest@example.com", out.Personalizations[0].To[0].Address)
}

func TestBuildMailRejectsEmptyRecipientOrBody(t *testing.T) {
	from := mail.NewEmail("", "tickets@tablebook.test")
	_, err := buildMail(from, Message{PlainText: "x"})
	require.Error(t, err)
	_, err = buildMail(from, Message{ToEmail: "guest@example.com"})
	require.Error(t, err)
}

func TestNewFallsBackToLogMailer(t *testing.T) {
	sender, err := New(config.SendgridConfig{}, nil)
	require.NoError(t, err)
	_, ok := sender.(*LogMailer)
	require.True(t, ok)
	require.NoError(t, sender.Send(context.Background(), Message{ToEmail: "guest@example.com", PlainText: "hi"}))
}

func TestNewSendgridRequiresSender(t *testing.T) {
	_, err := NewSendgrid(config.SendgridConfig{APIKey: "SG.key"}, nil)
	require.Error(t, err)

	m, err := New(config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "tickets@tablebook.test"}, nil)
	require.NoError(t, err)
	_, ok := m.(*SendgridMailer)
	require.True(t, ok)
}
