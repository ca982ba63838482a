package httppresentation

import (
	"time"

	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	domshipping "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/shopspring/decimal"
)

type orderItemView struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductBrand string          `json:"product_brand,omitempty"`
	ProductImage string          `json:"product_image,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type shippingView struct {
	Recipient    string `json:"recipient"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Province     string `json:"province"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Instructions string `json:"instructions,omitempty"`
}

type orderView struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	UserID            string          `json:"user_id"`
	DeliveryType      string          `json:"delivery_type"`
	ShippingAddressID string          `json:"shipping_address_id,omitempty"`
	Shipping          *shippingView   `json:"shipping,omitempty"`
	Items             []orderItemView `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toOrderView(o *domorder.Order) orderView {
	v := orderView{
		ID:                o.ID,
		Number:            o.Number,
		UserID:            o.UserID,
		DeliveryType:      string(o.DeliveryType),
		ShippingAddressID: o.ShippingAddressID,
		Items:             make([]orderItemView, len(o.Items)),
		Subtotal:          o.Subtotal,
		ShippingCost:      o.ShippingCost,
		Tax:               o.Tax,
		Total:             o.Total,
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		ProviderPaymentID: o.ProviderPaymentID,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if s := o.Shipping; s != nil {
		sv := shippingView(*s)
		v.Shipping = &sv
	}
	for i, it := range o.Items {
		v.Items[i] = orderItemView{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductBrand: it.ProductBrand,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.TotalPrice,
		}
	}
	return v
}

type pageView[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type paymentView struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	UserID            string          `json:"user_id"`
	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Method            string          `json:"method,omitempty"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	RetryCount        int             `json:"retry_count"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toPaymentView(p *dompay.Payment) paymentView {
	return paymentView{
		ID:                p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		ProviderPaymentID: p.ProviderPaymentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Method:            p.Method,
		Status:            string(p.Status),
		StatusDetail:      p.StatusDetail,
		FailureReason:     p.FailureReason,
		RetryCount:        p.RetryCount,
		ApprovedAt:        p.ApprovedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type transactionView struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type paymentDetailView struct {
	Payment      paymentView       `json:"payment"`
	Transactions []transactionView `json:"transactions"`
}

func toPaymentDetailView(d *apppay.PaymentDetail) paymentDetailView {
	v := paymentDetailView{Payment: toPaymentView(d.Payment), Transactions: make([]transactionView, len(d.Transactions))}
	for i, t := range d.Transactions {
		v.Transactions[i] = transactionView{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount,
			Status:      t.Status,
			Description: t.Description,
			ExternalID:  t.ExternalID,
			CreatedAt:   t.CreatedAt,
		}
	}
	return v
}

type verificationView struct {
	OrderID       string       `json:"order_id"`
	OrderStatus   string       `json:"order_status"`
	PaymentStatus string       `json:"payment_status"`
	Paid          bool         `json:"paid"`
	Payment       *paymentView `json:"payment,omitempty"`
}

func toVerificationView(v *apppay.Verification) verificationView {
	out := verificationView{
		OrderID:       v.OrderID,
		OrderStatus:   string(v.OrderStatus),
		PaymentStatus: string(v.PaymentStatus),
		Paid:          v.Paid,
	}
	if v.Payment != nil {
		pv := toPaymentView(v.Payment)
		out.Payment = &pv
	}
	return out
}

type preferenceView struct {
	PaymentID    string    `json:"payment_id"`
	PreferenceID string    `json:"preference_id"`
	RedirectURL  string    `json:"redirect_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type shipmentView struct {
	ID                 string          `json:"id"`
	OrderID            string          `json:"order_id"`
	Carrier            string          `json:"carrier"`
	Service            string          `json:"service"`
	TrackingNumber     string          `json:"tracking_number,omitempty"`
	ProviderShipmentID string          `json:"provider_shipment_id,omitempty"`
	Cost               decimal.Decimal `json:"cost"`
	EstimatedDays      int             `json:"estimated_days"`
	EstimatedDelivery  *time.Time      `json:"estimated_delivery,omitempty"`
	Status             string          `json:"status"`
	StatusDescription  string          `json:"status_description,omitempty"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty"`
}

func toShipmentView(s *domshipping.Shipment) shipmentView {
	return shipmentView{
		ID:                 s.ID,
		OrderID:            s.OrderID,
		Carrier:            s.Carrier,
		Service:            s.Service,
		TrackingNumber:     s.TrackingNumber,
		ProviderShipmentID: s.ProviderShipmentID,
		Cost:               s.Cost,
		EstimatedDays:      s.EstimatedDays,
		EstimatedDelivery:  s.EstimatedDelivery,
		Status:             string(s.Status),
		StatusDescription:  s.StatusDescription,
		DeliveredAt:        s.DeliveredAt,
	}
}
