package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxCharge        TransactionType = "charge"
	TxRefund        TransactionType = "refund"
	TxPartialRefund TransactionType = "partial_refund"
	TxDispute       TransactionType = "dispute"
	TxAdjustment    TransactionType = "adjustment"
)

// Transaction is an append-only audit entry attached to a payment.
type Transaction struct {
	ID          string
	PaymentID   string
	Type        TransactionType
	Amount      decimal.Decimal
	Status      string
	Description string
	ExternalID  string
	CreatedAt   time.Time
}
