package webhook

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeReceived          Outcome = "received"
	OutcomeProcessed         Outcome = "processed"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeRejectedSignature Outcome = "rejected_signature"
	OutcomeFailed            Outcome = "failed"
)

// Done reports whether a delivery with this outcome must not be handled again.
func (o Outcome) Done() bool {
	return o == OutcomeProcessed || o == OutcomeIgnored
}

// Delivery is one notification received from a provider, keyed by provider and delivery id.
type Delivery struct {
	ID             string
	Provider       string
	Topic          string
	Action         string
	ResourceID     string
	RequestID      string
	SignatureValid bool
	Outcome        Outcome
	Error          string
	ReceivedAt     time.Time
	ProcessedAt    *time.Time
}

func (d *Delivery) Finish(outcome Outcome, err error, now time.Time) {
	d.Outcome = outcome
	d.Error = ""
	if err != nil {
		d.Error = err.Error()
	}
	d.ProcessedAt = &now
}

func (d *Delivery) Clone() *Delivery {
	if d == nil {
		return nil
	}
	c := *d
	if d.ProcessedAt != nil {
		v := *d.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}

type Repository interface {
	// Get returns nil and no error when the delivery has never been seen.
	Get(ctx context.Context, provider, id string) (*Delivery, error)
	Save(ctx context.Context, d *Delivery) error
}
