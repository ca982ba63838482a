package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Preference is the provider-side checkout intent for one order.
type Preference struct {
	ExternalReference string
	Items             []PreferenceItem
	Payer             Payer
	BackURLs          BackURLs
	NotificationURL   string
	ExpiresAt         time.Time
	Metadata          map[string]string
}

type PreferenceItem struct {
	ID         string
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	Currency   string
	PictureURL string
}

type Payer struct {
	Name  string
	Email string
	Phone string
}

type BackURLs struct {
	Success string
	Failure string
	Pending string
}

type PreferenceResult struct {
	ID        string
	InitPoint string
}

// RemotePayment is the provider's authoritative view of a payment.
type RemotePayment struct {
	ID                string
	Status            Status
	StatusDetail      string
	PaymentMethodID   string
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
	Raw               json.RawMessage
}

// Gateway is the payment provider capability.
type Gateway interface {
	CreatePreference(ctx context.Context, p Preference, idempotencyKey string) (PreferenceResult, error)
	GetPayment(ctx context.Context, providerPaymentID string) (RemotePayment, error)
	// SearchPayments lists the provider's payments for an external reference, newest first.
	SearchPayments(ctx context.Context, externalReference string) ([]RemotePayment, error)
}
