package order

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUpdate reads the order and holds it locked until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*Order, int, error)
	// List returns one page of matching orders, newest first, and the match count.
	List(ctx context.Context, f Filter, offset, limit int) ([]*Order, int, error)
	CountByStatus(ctx context.Context, f Filter) (map[Status]int, error)
	SumTotal(ctx context.Context, f Filter) (decimal.Decimal, error)
	NumberLookup
}

// NumberLookup is the read side used when allocating order numbers.
type NumberLookup interface {
	CountByNumberPrefix(ctx context.Context, prefix string) (int, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}
