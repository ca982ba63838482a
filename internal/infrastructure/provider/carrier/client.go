// Package carrier is the HTTP client for the shipping aggregator.
package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	domship "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/provider"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL string
	Token   string
	Secret  string
	Timeout time.Duration
}

type Client struct {
	rest *provider.Client
}

func New(cfg Config) *Client {
	token, secret := cfg.Token, cfg.Secret
	return &Client{
		rest: provider.NewClient("carrier", cfg.BaseURL, cfg.Timeout, func(r *http.Request) {
			r.SetBasicAuth(token, secret)
		}),
	}
}

var _ domship.Carrier = (*Client)(nil)

type item struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Weight      int    `json:"weight"`
	Length      int    `json:"length"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type destination struct {
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode"`
	FullName     string `json:"full_name,omitempty"`
	Document     string `json:"document,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	Number       string `json:"number,omitempty"`
	Floor        string `json:"floor,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type quoteRequest struct {
	AccountID     string      `json:"account_id"`
	OriginID      string      `json:"origin_id"`
	DeclaredValue json.Number `json:"declared_value"`
	Items         []item      `json:"items"`
	Destination   destination `json:"destination"`
	DeliveryType  string      `json:"delivery_type"`
}

type quoteResult struct {
	ID            string          `json:"id"`
	CarrierID     json.Number     `json:"carrier_id"`
	Carrier       string          `json:"carrier"`
	ServiceType   string          `json:"service_type"`
	LogisticType  string          `json:"logistic_type"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
}

type shipmentRequest struct {
	AccountID     string      `json:"account_id"`
	OriginID      string      `json:"origin_id"`
	QuoteID       string      `json:"quote_id"`
	CarrierID     string      `json:"carrier_id"`
	ServiceType   string      `json:"service_type"`
	LogisticType  string      `json:"logistic_type"`
	DeclaredValue json.Number `json:"declared_value"`
	Items         []item      `json:"items"`
	Destination   destination `json:"destination"`
	Reference     string      `json:"external_id"`
	DeliveryType  string      `json:"delivery_type"`
}

type shipmentResponse struct {
	ID                string `json:"id"`
	TrackingNumber    string `json:"tracking_number"`
	Status            string `json:"status"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

func items(parcels []domship.Parcel) []item {
	out := make([]item, len(parcels))
	for i, p := range parcels {
		out[i] = item{
			SKU:         p.SKU,
			Description: p.Description,
			Quantity:    p.Quantity,
			Weight:      p.WeightGrams,
			Length:      p.LengthCM,
			Width:       p.WidthCM,
			Height:      p.HeightCM,
		}
	}
	return out
}

func dest(d domship.Destination, full bool) destination {
	out := destination{City: d.City, State: d.Province, Zipcode: d.PostalCode}
	if full {
		out.FullName = d.Recipient
		out.Document = d.Document
		out.Phone = d.Phone
		out.Email = d.Email
		out.Address = d.Street
		out.Number = d.Number
		if out.Number == "" {
			out.Number = "0"
		}
		out.Floor = d.Floor
		out.Apartment = d.Apartment
		out.Instructions = d.Notes
	}
	return out
}

func (c *Client) Quote(ctx context.Context, req domship.QuoteRequest) ([]domship.Option, error) {
	body := quoteRequest{
		AccountID:     req.AccountID,
		OriginID:      req.OriginID,
		DeclaredValue: json.Number(req.DeclaredValue.StringFixed(2)),
		Items:         items(req.Parcels),
		Destination:   dest(req.Destination, false),
		DeliveryType:  "delivery",
	}
	var resp struct {
		Data []quoteResult `json:"data"`
	}
	if err := c.rest.Do(ctx, http.MethodPost, "/shipments/quote", nil, body, &resp); err != nil {
		return nil, err
	}
	opts := make([]domship.Option, 0, len(resp.Data))
	for _, q := range resp.Data {
		opts = append(opts, domship.Option{
			QuoteID:       q.ID,
			CarrierID:     q.CarrierID.String(),
			Carrier:       strings.ToLower(q.Carrier),
			Service:       strings.ToLower(q.ServiceType),
			LogisticType:  q.LogisticType,
			Price:         q.Price,
			EstimatedDays: q.EstimatedDays,
		})
	}
	return opts, nil
}

func (c *Client) CreateShipment(ctx context.Context, req domship.BookRequest) (domship.Booking, error) {
	body := shipmentRequest{
		AccountID:     req.AccountID,
		OriginID:      req.OriginID,
		QuoteID:       req.QuoteID,
		CarrierID:     req.CarrierID,
		ServiceType:   req.ServiceType,
		LogisticType:  req.LogisticType,
		DeclaredValue: json.Number(req.DeclaredValue.StringFixed(2)),
		Items:         items(req.Parcels),
		Destination:   dest(req.Destination, true),
		Reference:     req.Reference,
		DeliveryType:  "delivery",
	}
	var resp shipmentResponse
	if err := c.rest.Do(ctx, http.MethodPost, "/shipments", nil, body, &resp); err != nil {
		return domship.Booking{}, err
	}
	b := domship.Booking{ID: resp.ID, TrackingID: resp.TrackingNumber, Status: mapStatus(resp.Status)}
	if t, err := time.Parse(time.RFC3339, resp.EstimatedDelivery); err == nil {
		b.EstimatedDelivery = &t
	}
	return b, nil
}

func (c *Client) Track(ctx context.Context, providerShipmentID string) (domship.Tracking, error) {
	var resp shipmentResponse
	if err := c.rest.Do(ctx, http.MethodGet, "/shipments/"+url.PathEscape(providerShipmentID), nil, nil, &resp); err != nil {
		return domship.Tracking{}, err
	}
	return domship.Tracking{Status: mapStatus(resp.Status), Description: resp.Status}, nil
}

func mapStatus(s string) domship.Status {
	switch strings.ToLower(s) {
	case "in_transit", "shipped":
		return domship.StatusInTransit
	case "delivered":
		return domship.StatusDelivered
	case "failed", "returned":
		return domship.StatusFailed
	case "cancelled":
		return domship.StatusCancelled
	case "confirmed", "ready_to_ship":
		return domship.StatusConfirmed
	}
	return domship.StatusPending
}
