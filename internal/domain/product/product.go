package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/sales-api/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item that sale items reference.
type Product struct {
	ID    int64
	Name  string
	Price money.Money
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
}
