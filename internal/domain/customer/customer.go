package customer

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

var (
	ErrUserNotFound    = apperr.New(apperr.NotFound, "user not found")
	ErrAddressNotFound = apperr.New(apperr.NotFound, "address not found")
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Document string
	Role     string
}

type Address struct {
	ID           string
	UserID       string
	Recipient    string
	Phone        string
	Street       string
	Number       string
	Floor        string
	Apartment    string
	City         string
	Province     string
	PostalCode   string
	Instructions string
}

// Line formats the street part of the address on one line.
func (a *Address) Line() string {
	parts := []string{strings.TrimSpace(a.Street + " " + a.Number)}
	if a.Floor != "" {
		parts = append(parts, "floor "+a.Floor)
	}
	if a.Apartment != "" {
		parts = append(parts, "apt "+a.Apartment)
	}
	parts = append(parts, a.City, a.Province, a.PostalCode)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

type Repository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetAddress(ctx context.Context, id string) (*Address, error)
}
