package id

import (
	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/google/uuid"
)

type uuidGenerator struct{}

// NewUUIDGenerator returns an IDGenerator issuing random (v4) UUID strings.
func NewUUIDGenerator() application.IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}
