package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApprovedEvent struct {
	PaymentID         string
	OrderID           string
	UserID            string
	ProviderPaymentID string
	Amount            decimal.Decimal
	Currency          string
	OccurredAt        time.Time
}

func (ApprovedEvent) EventName() string { return "payment.approved" }

type RejectedEvent struct {
	PaymentID         string
	OrderID           string
	UserID            string
	ProviderPaymentID string
	Reason            string
	RetryCount        int
	OccurredAt        time.Time
}

func (RejectedEvent) EventName() string { return "payment.rejected" }

func NewApprovedEvent(p *Payment, now time.Time) ApprovedEvent {
	return ApprovedEvent{
		PaymentID:         p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		ProviderPaymentID: p.ProviderPaymentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		OccurredAt:        now,
	}
}

func NewRejectedEvent(p *Payment, now time.Time) RejectedEvent {
	return RejectedEvent{
		PaymentID:         p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		ProviderPaymentID: p.ProviderPaymentID,
		Reason:            p.FailureReason,
		RetryCount:        p.RetryCount,
		OccurredAt:        now,
	}
}
