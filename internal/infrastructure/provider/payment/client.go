// Package payment is the HTTP client for the hosted-checkout payment provider.
package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/provider"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL     string
	AccessToken string
	// Sandbox redirects buyers to the sandbox checkout page.
	Sandbox bool
	Timeout time.Duration
}

type Client struct {
	rest    *provider.Client
	sandbox bool
}

func New(cfg Config) *Client {
	token := cfg.AccessToken
	return &Client{
		rest: provider.NewClient("payment provider", cfg.BaseURL, cfg.Timeout, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}),
		sandbox: cfg.Sandbox,
	}
}

var _ dompay.Gateway = (*Client)(nil)

type preferenceItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
	PictureURL string      `json:"picture_url,omitempty"`
}

type preferenceRequest struct {
	Items []preferenceItem `json:"items"`
	Payer struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
		Phone struct {
			Number string `json:"number,omitempty"`
		} `json:"phone"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	NotificationURL   string            `json:"notification_url"`
	ExternalReference string            `json:"external_reference"`
	Expires           bool              `json:"expires"`
	ExpirationDateTo  string            `json:"expiration_date_to,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

func (c *Client) CreatePreference(ctx context.Context, p dompay.Preference, idempotencyKey string) (dompay.PreferenceResult, error) {
	req := preferenceRequest{
		AutoReturn:        "approved",
		NotificationURL:   p.NotificationURL,
		ExternalReference: p.ExternalReference,
		Metadata:          p.Metadata,
	}
	for _, it := range p.Items {
		req.Items = append(req.Items, preferenceItem{
			ID:         it.ID,
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  json.Number(it.UnitPrice.String()),
			CurrencyID: it.Currency,
			PictureURL: it.PictureURL,
		})
	}
	req.Payer.Name = p.Payer.Name
	req.Payer.Email = p.Payer.Email
	req.Payer.Phone.Number = p.Payer.Phone
	req.BackURLs.Success = p.BackURLs.Success
	req.BackURLs.Failure = p.BackURLs.Failure
	req.BackURLs.Pending = p.BackURLs.Pending
	if !p.ExpiresAt.IsZero() {
		req.Expires = true
		req.ExpirationDateTo = p.ExpiresAt.UTC().Format(time.RFC3339)
	}

	var resp preferenceResponse
	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}
	if err := c.rest.Do(ctx, http.MethodPost, "/checkout/preferences", headers, req, &resp); err != nil {
		return dompay.PreferenceResult{}, err
	}
	redirect := resp.InitPoint
	if c.sandbox && resp.SandboxInitPoint != "" {
		redirect = resp.SandboxInitPoint
	}
	return dompay.PreferenceResult{ID: resp.ID, InitPoint: redirect}, nil
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
}

func (c *Client) GetPayment(ctx context.Context, providerPaymentID string) (dompay.RemotePayment, error) {
	var raw json.RawMessage
	if err := c.rest.Do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(providerPaymentID), nil, nil, &raw); err != nil {
		return dompay.RemotePayment{}, err
	}
	return decodePayment(raw)
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

func (c *Client) SearchPayments(ctx context.Context, externalReference string) ([]dompay.RemotePayment, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var resp searchResponse
	if err := c.rest.Do(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]dompay.RemotePayment, 0, len(resp.Results))
	for _, raw := range resp.Results {
		p, err := decodePayment(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodePayment(raw json.RawMessage) (dompay.RemotePayment, error) {
	var resp paymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return dompay.RemotePayment{}, err
	}
	return dompay.RemotePayment{
		ID:                resp.ID.String(),
		Status:            mapStatus(resp.Status),
		StatusDetail:      resp.StatusDetail,
		PaymentMethodID:   resp.PaymentMethodID,
		ExternalReference: resp.ExternalReference,
		Amount:            resp.TransactionAmount,
		Currency:          resp.CurrencyID,
		Raw:               raw,
	}, nil
}

// mapStatus folds the provider's status vocabulary onto ours.
func mapStatus(s string) dompay.Status {
	switch s {
	case "approved", "authorized":
		return dompay.StatusApproved
	case "rejected":
		return dompay.StatusRejected
	case "cancelled":
		return dompay.StatusCancelled
	case "refunded", "charged_back":
		return dompay.StatusRefunded
	case "in_process", "in_mediation":
		return dompay.StatusInProcess
	}
	return dompay.StatusPending
}
