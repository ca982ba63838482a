package payment

import (
	"encoding/json"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = apperr.New(apperr.NotFound, "payment not found")
	ErrInvalidOrder    = apperr.New(apperr.Validation, "order total must be greater than zero")
	ErrCannotCancel    = apperr.New(apperr.Conflict, "approved payment cannot be cancelled")
	ErrForbidden       = apperr.New(apperr.Forbidden, "payment belongs to another user")
	ErrDuplicateRemote = apperr.New(apperr.Conflict, "provider payment id already recorded")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	StatusInProcess Status = "in_process"
)

// Terminal statuses end reconciliation for a payment.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID                string
	OrderID           string
	UserID            string
	ProviderPaymentID string
	IdempotencyKey    string
	Amount            decimal.Decimal
	Currency          string
	Method            string
	Status            Status
	StatusDetail      string
	FailureReason     string
	RetryCount        int
	LastRetryAt       *time.Time
	WebhookProcessed  bool
	WebhookReceivedAt *time.Time
	ApprovedAt        *time.Time
	Metadata          json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Approve records a captured payment.
func (p *Payment) Approve(detail, method string, now time.Time) {
	p.Status = StatusApproved
	p.StatusDetail = detail
	if method != "" {
		p.Method = method
	}
	p.FailureReason = ""
	p.ApprovedAt = &now
	p.UpdatedAt = now
}

// Reject records a declined attempt and counts it as a retry.
func (p *Payment) Reject(detail string, now time.Time) {
	p.Status = StatusRejected
	p.StatusDetail = detail
	p.FailureReason = detail
	p.RetryCount++
	p.LastRetryAt = &now
	p.UpdatedAt = now
}

func (p *Payment) SetStatus(s Status, detail string, now time.Time) {
	p.Status = s
	p.StatusDetail = detail
	p.UpdatedAt = now
}

// Cancel stops a payment that has not been captured.
func (p *Payment) Cancel(now time.Time) error {
	if p.Status == StatusApproved {
		return ErrCannotCancel
	}
	p.Status = StatusCancelled
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.Metadata = append(json.RawMessage(nil), p.Metadata...)
	for _, t := range []**time.Time{&c.LastRetryAt, &c.WebhookReceivedAt, &c.ApprovedAt} {
		if *t != nil {
			v := **t
			*t = &v
		}
	}
	return &c
}
