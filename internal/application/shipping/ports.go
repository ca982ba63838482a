package shipping

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
)

const (
	shippingService = "shipping-service"
	carrierPeer     = "carrier"
)

// Config holds the carrier account and the parcel used when a product has no dimensions.
type Config struct {
	AccountID     string
	OriginID      string
	DefaultParcel ParcelDefaults
}

type ParcelDefaults struct {
	WeightGrams int
	LengthCM    int
	WidthCM     int
	HeightCM    int
}

func (c Config) withDefaults() Config {
	d := &c.DefaultParcel
	if d.WeightGrams <= 0 {
		d.WeightGrams = 100
	}
	if d.LengthCM <= 0 {
		d.LengthCM = 10
	}
	if d.WidthCM <= 0 {
		d.WidthCM = 10
	}
	if d.HeightCM <= 0 {
		d.HeightCM = 10
	}
	return c
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// shipmentContext is everything read from the ledger to talk to the carrier.
type shipmentContext struct {
	order       *domorder.Order
	user        *customer.User
	parcels     []domain.Parcel
	destination domain.Destination
}

// loadContext reads the order, checks access and builds the manifest and destination.
func loadContext(ctx context.Context, store ledger.Store, cfg Config, actor application.Actor, orderID, addressID string) (*shipmentContext, error) {
	var sc shipmentContext
	err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(o.UserID) {
			return domorder.ErrForbidden
		}
		addr, err := tx.Customers().GetAddress(ctx, addressID)
		if err != nil || addr.UserID != o.UserID {
			return domain.ErrNoDestination
		}
		user, err := tx.Customers().GetUser(ctx, o.UserID)
		if err != nil {
			return err
		}

		parcels := make([]domain.Parcel, 0, len(o.Items))
		for _, it := range o.Items {
			p := domain.Parcel{
				SKU:         it.ProductID,
				Description: it.ProductName,
				Quantity:    it.Quantity,
				WeightGrams: cfg.DefaultParcel.WeightGrams,
				LengthCM:    cfg.DefaultParcel.LengthCM,
				WidthCM:     cfg.DefaultParcel.WidthCM,
				HeightCM:    cfg.DefaultParcel.HeightCM,
			}
			// Products removed from the catalog keep the defaults.
			if prod, err := tx.Products().Get(ctx, it.ProductID); err == nil {
				p.WeightGrams = orDefault(prod.WeightGrams, p.WeightGrams)
				p.LengthCM = orDefault(prod.LengthCM, p.LengthCM)
				p.WidthCM = orDefault(prod.WidthCM, p.WidthCM)
				p.HeightCM = orDefault(prod.HeightCM, p.HeightCM)
			}
			parcels = append(parcels, p)
		}

		recipient, phone := addr.Recipient, addr.Phone
		if recipient == "" {
			recipient = user.Name
		}
		if phone == "" {
			phone = user.Phone
		}
		sc = shipmentContext{
			order:   o,
			user:    user,
			parcels: parcels,
			destination: domain.Destination{
				Recipient:  recipient,
				Document:   user.Document,
				Phone:      phone,
				Email:      user.Email,
				Street:     addr.Street,
				Number:     addr.Number,
				Floor:      addr.Floor,
				Apartment:  addr.Apartment,
				City:       addr.City,
				Province:   addr.Province,
				PostalCode: addr.PostalCode,
				Notes:      addr.Instructions,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
