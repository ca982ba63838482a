package payment

import "time"

const (
	paymentService = "payment-service"
	providerPeer   = "payment_provider"
)

// Config holds the URLs and timing used when talking to the provider.
type Config struct {
	FrontendURL   string
	APIURL        string
	Currency      string
	PreferenceTTL time.Duration
	LockTTL       time.Duration
	Retry         Backoff
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "ARS"
	}
	if c.PreferenceTTL <= 0 {
		c.PreferenceTTL = 24 * time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.Initial <= 0 {
		c.Retry.Initial = time.Second
	}
	return c
}
