// Package gateway creates hosted invoices at the payment provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const (
	invoicesPath   = "/v2/invoices"
	retryBaseDelay = 200 * time.Millisecond
	maxErrorBody   = 4 << 10
)

// InvoiceRequest is the outbound payment request for one reservation.
type InvoiceRequest struct {
	ExternalID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
	PayerEmail  string
}

// Invoice is the provider's view of a created payment request.
type Invoice struct {
	ProviderID string
	ExternalID string
	Status     string
	InvoiceURL string
	ExpiresAt  *time.Time
}

// InvoiceCreator is the surface the reservation engine depends on.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
}

// Client talks to an invoice-style gateway over HTTPS with basic auth.
type Client struct {
	httpClient *http.Client
	cfg        config.GatewayConfig
	logg       *logger.Logger
}

func NewClient(cfg config.GatewayConfig, logg *logger.Logger, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("gateway secret key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg, logg: logg}, nil
}

type createInvoiceBody struct {
	ExternalID         string  `json:"external_id"`
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency,omitempty"`
	Description        string  `json:"description,omitempty"`
	PayerEmail         string  `json:"payer_email,omitempty"`
	InvoiceDuration    int64   `json:"invoice_duration,omitempty"`
	SuccessRedirectURL string  `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string  `json:"failure_redirect_url,omitempty"`
}

type invoiceResponse struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id"`
	Status     string     `json:"status"`
	InvoiceURL string     `json:"invoice_url"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// CreateInvoice requests a hosted invoice. Transport failures and 5xx
// responses are retried; 4xx responses fail immediately.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must be positive")
	}

	amount, _ := req.Amount.Float64()
	body, err := json.Marshal(createInvoiceBody{
		ExternalID:         req.ExternalID,
		Amount:             amount,
		Currency:           req.Currency,
		Description:        req.Description,
		PayerEmail:         req.PayerEmail,
		InvoiceDuration:    int64(c.cfg.InvoiceDuration / time.Second),
		SuccessRedirectURL: c.cfg.SuccessURL,
		FailureRedirectURL: c.cfg.FailureURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode invoice request")
	}

	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(retryBaseDelay))

	var out invoiceResponse
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendErr := c.send(ctx, body, &out)
		if sendErr != nil && c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"external_id": req.ExternalID,
				"attempt":     attempt,
			})
			c.logg.Warn(logCtx, fmt.Sprintf("gateway invoice attempt failed: %v", sendErr))
		}
		return sendErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "create gateway invoice")
	}
	if out.InvoiceURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeExternalService, "gateway returned no invoice url")
	}

	return &Invoice{
		ProviderID: out.ID,
		ExternalID: out.ExternalID,
		Status:     out.Status,
		InvoiceURL: out.InvoiceURL,
		ExpiresAt:  out.ExpiryDate,
	}, nil
}

func (c *Client) send(ctx context.Context, body []byte, out *invoiceResponse) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + invoicesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.SetBasicAuth(c.cfg.SecretKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return retry.RetryableError(statusError(resp))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode invoice response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("gateway responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
