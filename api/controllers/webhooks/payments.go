package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const callbackTokenHeader = "X-Callback-Token"

type PaymentNotificationService interface {
	Authenticate(token string) error
	HandleNotification(ctx context.Context, n payments.Notification) (*payments.Result, error)
}

type paymentCallback struct {
	ExternalID string `json:"external_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	Token      string `json:"token,omitempty"`
}

// PaymentWebhook receives gateway invoice callbacks. The authenticity token
// comes from the X-Callback-Token header, falling back to the body field.
// A nil service means no callback token is configured and every call is
// forbidden.
func PaymentWebhook(svc PaymentNotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			reject(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payment webhook disabled"))
			return
		}

		token := strings.TrimSpace(r.Header.Get(callbackTokenHeader))
		if token != "" {
			if err := svc.Authenticate(token); err != nil {
				reject(ctx, logg, w, err)
				return
			}
		}

		var body paymentCallback
		if err := validators.DecodeExternalJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if token == "" {
			token = strings.TrimSpace(body.Token)
		}

		result, err := svc.HandleNotification(ctx, payments.Notification{
			ExternalID: body.ExternalID,
			Status:     body.Status,
			Token:      token,
		})
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeForbidden) {
				reject(ctx, logg, w, err)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if logg != nil {
		logg.Warn(ctx, "payment callback rejected")
	}
	responses.WriteError(ctx, nil, w, err)
}
