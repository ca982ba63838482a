package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Parcel describes one item in the carrier manifest.
type Parcel struct {
	SKU         string
	Description string
	Quantity    int
	WeightGrams int
	LengthCM    int
	WidthCM     int
	HeightCM    int
}

type Destination struct {
	Recipient  string
	Document   string
	Phone      string
	Email      string
	Street     string
	Number     string
	Floor      string
	Apartment  string
	City       string
	Province   string
	PostalCode string
	Notes      string
}

type QuoteRequest struct {
	AccountID     string
	OriginID      string
	DeclaredValue decimal.Decimal
	Parcels       []Parcel
	Destination   Destination
}

// Option is a carrier-agnostic priced shipping choice.
type Option struct {
	QuoteID       string          `json:"quote_id"`
	CarrierID     string          `json:"carrier_id"`
	Carrier       string          `json:"carrier"`
	Service       string          `json:"service"`
	LogisticType  string          `json:"logistic_type"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
}

type BookRequest struct {
	AccountID     string
	OriginID      string
	Reference     string
	QuoteID       string
	CarrierID     string
	ServiceType   string
	LogisticType  string
	DeclaredValue decimal.Decimal
	Parcels       []Parcel
	Destination   Destination
}

type Booking struct {
	ID                string
	TrackingID        string
	Status            Status
	EstimatedDelivery *time.Time
}

type Tracking struct {
	Status      Status
	Description string
}

// Carrier is the shipping provider capability.
type Carrier interface {
	Quote(ctx context.Context, req QuoteRequest) ([]Option, error)
	CreateShipment(ctx context.Context, req BookRequest) (Booking, error)
	Track(ctx context.Context, providerShipmentID string) (Tracking, error)
}
