// Package notifications turns ticket and account events from Pub/Sub into
// e-mail. Delivery is best effort: a failed send never touches the ticket.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/mailer"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tablebook-backend/pkg/qrcode"
)

// ConsumerName scopes idempotency claims for the mailer.
const ConsumerName = "notification-mailer"

var errPermanent = errors.New("permanent notification failure")

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type eventClaimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

// ConsumerParams wires the notification consumer.
type ConsumerParams struct {
	Subscription messageSource
	Idempotency  eventClaimer
	Mailer       mailer.Sender
	Logger       *logger.Logger
	QRSize       int
}

// Consumer delivers ticket and password reset e-mails.
type Consumer struct {
	subscription messageSource
	idempotency  eventClaimer
	mailer       mailer.Sender
	logg         *logger.Logger
	qrSize       int
	renderQR     func(content string, size int) ([]byte, error)
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := params.QRSize
	if size <= 0 {
		size = qrcode.DefaultSize
	}
	return &Consumer{
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		mailer:       params.Mailer,
		logg:         params.Logger,
		qrSize:       size,
		renderQR:     qrcode.PNG,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventTicketIssued && eventType != enums.EventPasswordResetRequested {
		c.logg.Info(logCtx, "skipping event without a notification")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	owned, err := c.idempotency.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !owned {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.deliver(logCtx, eventType, envelope.Data); err != nil {
		if errors.Is(err, errPermanent) {
			c.logg.Error(logCtx, "dropping undeliverable notification", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification delivery failed", err)
		if delErr := c.idempotency.Release(ctx, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency mark", delErr)
		}
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "notification delivered")
	return processResult{ack: true}
}

func (c *Consumer) deliver(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	var (
		msg mailer.Message
		err error
	)
	switch eventType {
	case enums.EventTicketIssued:
		msg, err = c.ticketMail(data)
	case enums.EventPasswordResetRequested:
		msg, err = c.resetMail(data)
	}
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, msg)
}

func (c *Consumer) ticketMail(data json.RawMessage) (mailer.Message, error) {
	var evt payloads.TicketIssuedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return mailer.Message{}, fmt.Errorf("%w: decode ticket payload: %v", errPermanent, err)
	}
	if strings.TrimSpace(evt.Email) == "" || strings.TrimSpace(evt.TicketCode) == "" {
		return mailer.Message{}, fmt.Errorf("%w: ticket %s has no recipient or code", errPermanent, evt.TicketID)
	}
	png, err := c.renderQR(evt.TicketCode, c.qrSize)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("%w: render qr: %v", errPermanent, err)
	}
	msg, err := ticketMessage(evt, png)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("%w: %v", errPermanent, err)
	}
	return msg, nil
}

func (c *Consumer) resetMail(data json.RawMessage) (mailer.Message, error) {
	var evt payloads.PasswordResetRequestedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return mailer.Message{}, fmt.Errorf("%w: decode reset payload: %v", errPermanent, err)
	}
	if strings.TrimSpace(evt.Email) == "" || strings.TrimSpace(evt.ResetURL) == "" {
		return mailer.Message{}, fmt.Errorf("%w: reset for user %s has no recipient or link", errPermanent, evt.UserID)
	}
	msg, err := passwordResetMessage(evt)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("%w: %v", errPermanent, err)
	}
	return msg, nil
}
