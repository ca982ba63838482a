package mysql

import (
	"encoding/json"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
	"github.com/shopspring/decimal"
)

type shippingColumns struct {
	Recipient    string `gorm:"type:varchar(150)"`
	Phone        string `gorm:"type:varchar(40)"`
	Address      string `gorm:"type:varchar(255)"`
	Province     string `gorm:"type:varchar(100)"`
	City         string `gorm:"type:varchar(100)"`
	PostalCode   string `gorm:"type:varchar(20)"`
	Instructions string `gorm:"type:text"`
}

type orderRecord struct {
	ID                string          `gorm:"type:char(36);primaryKey"`
	Number            string          `gorm:"type:varchar(40);not null;uniqueIndex"`
	UserID            string          `gorm:"type:char(36);not null;index"`
	DeliveryType      string          `gorm:"type:varchar(20);not null"`
	ShippingAddressID string          `gorm:"type:char(36)"`
	HasShipping       bool            `gorm:"not null;default:false"`
	Shipping          shippingColumns `gorm:"embedded;embeddedPrefix:ship_"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingCost      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax               decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status            string          `gorm:"type:varchar(30);not null;index"`
	PaymentStatus     string          `gorm:"type:varchar(20);not null"`
	ProviderPaymentID string          `gorm:"type:varchar(100);index"`
	Notes             string          `gorm:"type:text"`
	CreatedAt         time.Time       `gorm:"not null;index"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID           string          `gorm:"type:char(36);primaryKey"`
	OrderID      string          `gorm:"type:char(36);not null;index"`
	Position     int             `gorm:"not null"`
	ProductID    string          `gorm:"type:char(36);not null"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ProductName  string          `gorm:"type:varchar(255)"`
	ProductBrand string          `gorm:"type:varchar(100)"`
	ProductImage string          `gorm:"type:varchar(500)"`
}

func (orderItemRecord) TableName() string { return "order_items" }

func toOrderRecord(o *order.Order) (orderRecord, []orderItemRecord) {
	rec := orderRecord{
		ID:                o.ID,
		Number:            o.Number,
		UserID:            o.UserID,
		DeliveryType:      string(o.DeliveryType),
		ShippingAddressID: o.ShippingAddressID,
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
		rec.HasShipping = true
		rec.Shipping = shippingColumns(*s)
	}
	items := make([]orderItemRecord, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemRecord{
			ID:           it.ID,
			OrderID:      o.ID,
			Position:     i,
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.TotalPrice,
			ProductName:  it.ProductName,
			ProductBrand: it.ProductBrand,
			ProductImage: it.ProductImage,
		}
	}
	return rec, items
}

func (r orderRecord) toDomain(items []orderItemRecord) *order.Order {
	o := &order.Order{
		ID:                r.ID,
		Number:            r.Number,
		UserID:            r.UserID,
		DeliveryType:      order.DeliveryType(r.DeliveryType),
		ShippingAddressID: r.ShippingAddressID,
		Subtotal:          r.Subtotal,
		ShippingCost:      r.ShippingCost,
		Tax:               r.Tax,
		Total:             r.Total,
		Status:            order.Status(r.Status),
		PaymentStatus:     order.PaymentStatus(r.PaymentStatus),
		ProviderPaymentID: r.ProviderPaymentID,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.HasShipping {
		s := order.ShippingSnapshot(r.Shipping)
		o.Shipping = &s
	}
	o.Items = make([]order.Item, len(items))
	for i, it := range items {
		o.Items[i] = order.Item{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.TotalPrice,
			ProductName:  it.ProductName,
			ProductBrand: it.ProductBrand,
			ProductImage: it.ProductImage,
		}
	}
	return o
}

type productRecord struct {
	ID             string          `gorm:"type:char(36);primaryKey"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Brand          string          `gorm:"type:varchar(100)"`
	Image          string          `gorm:"type:varchar(500)"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	FinalPrice     decimal.Decimal `gorm:"type:decimal(12,2)"`
	Stock          int             `gorm:"not null;default:0"`
	TrackInventory bool            `gorm:"not null;default:true"`
	IsActive       bool            `gorm:"not null;default:true"`
	IsAvailable    bool            `gorm:"not null;default:true"`
	WeightGrams    int
	LengthCM       int
	WidthCM        int
	HeightCM       int
	UpdatedAt      time.Time
}

func (productRecord) TableName() string { return "products" }

func toProductRecord(p *inventory.Product) productRecord {
	return productRecord(*p)
}

func (r productRecord) toDomain() *inventory.Product {
	p := inventory.Product(r)
	return &p
}

type cartRecord struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;uniqueIndex"`
}

func (cartRecord) TableName() string { return "carts" }

type cartItemRecord struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	CartID    string `gorm:"type:char(36);not null;index"`
	ProductID string `gorm:"type:char(36);not null"`
	Quantity  int    `gorm:"not null"`
}

func (cartItemRecord) TableName() string { return "cart_items" }

func (r cartRecord) toDomain(items []cartItemRecord) *cart.Cart {
	c := &cart.Cart{ID: r.ID, UserID: r.UserID, Items: make([]cart.Item, len(items))}
	for i, it := range items {
		c.Items[i] = cart.Item{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return c
}

type userRecord struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Name     string `gorm:"type:varchar(150)"`
	Email    string `gorm:"type:varchar(255);uniqueIndex"`
	Phone    string `gorm:"type:varchar(40)"`
	Document string `gorm:"type:varchar(40)"`
	Role     string `gorm:"type:varchar(20);not null;default:'customer'"`
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) toDomain() *customer.User {
	u := customer.User(r)
	return &u
}

type addressRecord struct {
	ID           string `gorm:"type:char(36);primaryKey"`
	UserID       string `gorm:"type:char(36);not null;index"`
	Recipient    string `gorm:"type:varchar(150)"`
	Phone        string `gorm:"type:varchar(40)"`
	Street       string `gorm:"type:varchar(255)"`
	Number       string `gorm:"type:varchar(20)"`
	Floor        string `gorm:"type:varchar(20)"`
	Apartment    string `gorm:"type:varchar(20)"`
	City         string `gorm:"type:varchar(100)"`
	Province     string `gorm:"type:varchar(100)"`
	PostalCode   string `gorm:"type:varchar(20)"`
	Instructions string `gorm:"type:text"`
}

func (addressRecord) TableName() string { return "addresses" }

func (r addressRecord) toDomain() *customer.Address {
	a := customer.Address(r)
	return &a
}

type paymentRecord struct {
	ID                string          `gorm:"type:char(36);primaryKey"`
	OrderID           string          `gorm:"type:char(36);not null;index"`
	UserID            string          `gorm:"type:char(36);not null;index"`
	ProviderPaymentID *string         `gorm:"type:varchar(100);uniqueIndex"`
	IdempotencyKey    string          `gorm:"type:varchar(150);not null;uniqueIndex"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	Method            string          `gorm:"type:varchar(40)"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	StatusDetail      string          `gorm:"type:varchar(100)"`
	FailureReason     string          `gorm:"type:text"`
	RetryCount        int             `gorm:"not null;default:0"`
	LastRetryAt       *time.Time
	WebhookProcessed  bool `gorm:"not null;default:false"`
	WebhookReceivedAt *time.Time
	ApprovedAt        *time.Time
	Metadata          string    `gorm:"type:longtext"`
	CreatedAt         time.Time `gorm:"not null;index"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (paymentRecord) TableName() string { return "payments" }

func toPaymentRecord(p *payment.Payment) paymentRecord {
	rec := paymentRecord{
		ID:                p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		IdempotencyKey:    p.IdempotencyKey,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Method:            p.Method,
		Status:            string(p.Status),
		StatusDetail:      p.StatusDetail,
		FailureReason:     p.FailureReason,
		RetryCount:        p.RetryCount,
		LastRetryAt:       p.LastRetryAt,
		WebhookProcessed:  p.WebhookProcessed,
		WebhookReceivedAt: p.WebhookReceivedAt,
		ApprovedAt:        p.ApprovedAt,
		Metadata:          string(p.Metadata),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	// NULL keeps the unique index from colliding on payments without a provider id.
	if p.ProviderPaymentID != "" {
		id := p.ProviderPaymentID
		rec.ProviderPaymentID = &id
	}
	return rec
}

func (r paymentRecord) toDomain() *payment.Payment {
	p := &payment.Payment{
		ID:                r.ID,
		OrderID:           r.OrderID,
		UserID:            r.UserID,
		IdempotencyKey:    r.IdempotencyKey,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Method:            r.Method,
		Status:            payment.Status(r.Status),
		StatusDetail:      r.StatusDetail,
		FailureReason:     r.FailureReason,
		RetryCount:        r.RetryCount,
		LastRetryAt:       r.LastRetryAt,
		WebhookProcessed:  r.WebhookProcessed,
		WebhookReceivedAt: r.WebhookReceivedAt,
		ApprovedAt:        r.ApprovedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.ProviderPaymentID != nil {
		p.ProviderPaymentID = *r.ProviderPaymentID
	}
	if r.Metadata != "" {
		p.Metadata = json.RawMessage(r.Metadata)
	}
	return p
}

type transactionRecord struct {
	ID          string          `gorm:"type:char(36);primaryKey"`
	PaymentID   string          `gorm:"type:char(36);not null;index"`
	Type        string          `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      string          `gorm:"type:varchar(20)"`
	Description string          `gorm:"type:varchar(255)"`
	ExternalID  string          `gorm:"type:varchar(100)"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (transactionRecord) TableName() string { return "payment_transactions" }

func toTransactionRecord(t *payment.Transaction) transactionRecord {
	return transactionRecord{
		ID:          t.ID,
		PaymentID:   t.PaymentID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Status:      t.Status,
		Description: t.Description,
		ExternalID:  t.ExternalID,
		CreatedAt:   t.CreatedAt,
	}
}

func (r transactionRecord) toDomain() *payment.Transaction {
	return &payment.Transaction{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		Type:        payment.TransactionType(r.Type),
		Amount:      r.Amount,
		Status:      r.Status,
		Description: r.Description,
		ExternalID:  r.ExternalID,
		CreatedAt:   r.CreatedAt,
	}
}

type shipmentRecord struct {
	ID                   string          `gorm:"type:char(36);primaryKey"`
	OrderID              string          `gorm:"type:char(36);not null;uniqueIndex"`
	DestinationAddressID string          `gorm:"type:char(36)"`
	Carrier              string          `gorm:"type:varchar(50)"`
	CarrierID            string          `gorm:"type:varchar(50)"`
	Service              string          `gorm:"type:varchar(50)"`
	LogisticType         string          `gorm:"type:varchar(50)"`
	QuoteID              string          `gorm:"type:varchar(100)"`
	ProviderShipmentID   string          `gorm:"type:varchar(100);index"`
	TrackingNumber       string          `gorm:"type:varchar(100)"`
	Cost                 decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EstimatedDays        int
	EstimatedDelivery    *time.Time
	Status               string `gorm:"type:varchar(20);not null"`
	StatusDescription    string `gorm:"type:varchar(255)"`
	DeliveredAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (shipmentRecord) TableName() string { return "shipments" }

func toShipmentRecord(s *shipping.Shipment) shipmentRecord {
	return shipmentRecord{
		ID:                   s.ID,
		OrderID:              s.OrderID,
		DestinationAddressID: s.DestinationAddressID,
		Carrier:              s.Carrier,
		CarrierID:            s.CarrierID,
		Service:              s.Service,
		LogisticType:         s.LogisticType,
		QuoteID:              s.QuoteID,
		ProviderShipmentID:   s.ProviderShipmentID,
		TrackingNumber:       s.TrackingNumber,
		Cost:                 s.Cost,
		EstimatedDays:        s.EstimatedDays,
		EstimatedDelivery:    s.EstimatedDelivery,
		Status:               string(s.Status),
		StatusDescription:    s.StatusDescription,
		DeliveredAt:          s.DeliveredAt,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (r shipmentRecord) toDomain() *shipping.Shipment {
	return &shipping.Shipment{
		ID:                   r.ID,
		OrderID:              r.OrderID,
		DestinationAddressID: r.DestinationAddressID,
		Carrier:              r.Carrier,
		CarrierID:            r.CarrierID,
		Service:              r.Service,
		LogisticType:         r.LogisticType,
		QuoteID:              r.QuoteID,
		ProviderShipmentID:   r.ProviderShipmentID,
		TrackingNumber:       r.TrackingNumber,
		Cost:                 r.Cost,
		EstimatedDays:        r.EstimatedDays,
		EstimatedDelivery:    r.EstimatedDelivery,
		Status:               shipping.Status(r.Status),
		StatusDescription:    r.StatusDescription,
		DeliveredAt:          r.DeliveredAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type deliveryRecord struct {
	ID             uint       `gorm:"primaryKey"`
	Provider       string     `gorm:"type:varchar(30);not null;uniqueIndex:ux_webhook_deliveries_provider_delivery,priority:1"`
	DeliveryID     string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_deliveries_provider_delivery,priority:2"`
	Topic          string     `gorm:"type:varchar(50);index"`
	Action         string     `gorm:"type:varchar(50)"`
	ResourceID     string     `gorm:"type:varchar(100);index"`
	RequestID      string     `gorm:"type:varchar(100)"`
	SignatureValid bool       `gorm:"not null;default:false"`
	Outcome        string     `gorm:"type:varchar(30);not null"`
	Error          string     `gorm:"type:text"`
	ReceivedAt     time.Time  `gorm:"not null"`
	ProcessedAt    *time.Time `gorm:"default:null"`
}

func (deliveryRecord) TableName() string { return "webhook_deliveries" }

func toDeliveryRecord(d *webhook.Delivery) deliveryRecord {
	return deliveryRecord{
		Provider:       d.Provider,
		DeliveryID:     d.ID,
		Topic:          d.Topic,
		Action:         d.Action,
		ResourceID:     d.ResourceID,
		RequestID:      d.RequestID,
		SignatureValid: d.SignatureValid,
		Outcome:        string(d.Outcome),
		Error:          d.Error,
		ReceivedAt:     d.ReceivedAt,
		ProcessedAt:    d.ProcessedAt,
	}
}

func (r deliveryRecord) toDomain() *webhook.Delivery {
	return &webhook.Delivery{
		ID:             r.DeliveryID,
		Provider:       r.Provider,
		Topic:          r.Topic,
		Action:         r.Action,
		ResourceID:     r.ResourceID,
		RequestID:      r.RequestID,
		SignatureValid: r.SignatureValid,
		Outcome:        webhook.Outcome(r.Outcome),
		Error:          r.Error,
		ReceivedAt:     r.ReceivedAt,
		ProcessedAt:    r.ProcessedAt,
	}
}
