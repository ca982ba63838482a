package cart

import "context"

// Cart is the user's basket as read by checkout.
type Cart struct {
	ID     string
	UserID string
	Items  []Item
}

type Item struct {
	ID        string
	ProductID string
	Quantity  int
}

func (c *Cart) Empty() bool { return c == nil || len(c.Items) == 0 }

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}

type Repository interface {
	// GetByUser returns the user's cart; a user without one gets an empty cart.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	Clear(ctx context.Context, cartID string) error
}
