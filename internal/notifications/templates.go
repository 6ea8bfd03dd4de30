package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/angelmondragon/tablebook-backend/pkg/mailer"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
)

const (
	ticketQRContentID = "ticket-qr"
	displayTimeLayout = "Mon, 02 Jan 2006 15:04 MST"
)

var ticketHTML = template.Must(template.New("ticket").Parse(`<p>Hi {{.Name}},</p>
<p>Your table is confirmed for <strong>{{.EventName}}</strong> on {{.StartsAt}}.</p>
<p>Table: {{.TableName}}<br>Guests: {{.GuestCount}}<br>Ticket code: <strong>{{.Code}}</strong></p>
<p><img src="cid:{{.ContentID}}" alt="Ticket QR code" width="256" height="256"></p>
<p>Show this code at the entrance. It is valid until {{.ExpiresAt}}.</p>`))

var resetHTML = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. The link below works once and expires at {{.ExpiresAt}}.</p>
<p><a href="{{.URL}}">Reset your password</a></p>
<p>If you did not ask for this, you can ignore this e-mail.</p>`))

func ticketMessage(evt payloads.TicketIssuedEvent, qrPNG []byte) (mailer.Message, error) {
	data := struct {
		Name, EventName, StartsAt, TableName, Code, ContentID, ExpiresAt string
		GuestCount                                                       int
	}{
		Name:       displayName(evt.RecipientName),
		EventName:  evt.EventName,
		StartsAt:   formatTime(evt.EventStartsAt),
		TableName:  evt.TableName,
		Code:       evt.TicketCode,
		ContentID:  ticketQRContentID,
		ExpiresAt:  formatTime(evt.ExpiresAt),
		GuestCount: evt.GuestCount,
	}
	var html bytes.Buffer
	if err := ticketHTML.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render ticket email: %w", err)
	}
	plain := fmt.Sprintf(
		"Hi %s,\n\nYour table is confirmed for %s on %s.\nTable: %s\nGuests: %d\nTicket code: %s\n\nShow this code at the entrance. It is valid until %s.\n",
		data.Name, data.EventName, data.StartsAt, data.TableName, data.GuestCount, data.Code, data.ExpiresAt,
	)
	return mailer.Message{
		ToEmail:   evt.Email,
		ToName:    evt.RecipientName,
		Subject:   fmt.Sprintf("Your ticket for %s", evt.EventName),
		PlainText: plain,
		HTML:      html.String(),
		Attachments: []mailer.Attachment{{
			Filename:    fmt.Sprintf("ticket-%s.png", evt.TicketCode),
			ContentType: "image/png",
			ContentID:   ticketQRContentID,
			Content:     qrPNG,
		}},
	}, nil
}

func passwordResetMessage(evt payloads.PasswordResetRequestedEvent) (mailer.Message, error) {
	data := struct {
		Name, URL, ExpiresAt string
	}{
		Name:      displayName(evt.Name),
		URL:       evt.ResetURL,
		ExpiresAt: formatTime(evt.ExpiresAt),
	}
	var html bytes.Buffer
	if err := resetHTML.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render reset email: %w", err)
	}
	plain := fmt.Sprintf(
		"Hi %s,\n\nReset your password here (single use, expires %s):\n%s\n\nIf you did not ask for this, ignore this e-mail.\n",
		data.Name, data.ExpiresAt, data.URL,
	)
	return mailer.Message{
		ToEmail:   evt.Email,
		ToName:    evt.Name,
		Subject:   "Reset your password",
		PlainText: plain,
		HTML:      html.String(),
	}, nil
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(displayTimeLayout)
}
