// Package sale holds the sales domain: sale records, the totals calculator,
// discount allocation and the transactional service used by the API.
package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusCompleted, StatusCancelled}
}

// Finalized reports whether a sale in this state can no longer change.
func (s Status) Finalized() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	// ErrNotFound is returned when a sale does not exist.
	ErrNotFound = errors.New("sale not found")
	// ErrDuplicateCode is returned when another sale already uses the code.
	ErrDuplicateCode = errors.New("sale code already exists")
	// ErrFinalized is returned when modifying a completed or cancelled sale.
	ErrFinalized = errors.New("sale is finalized")
)

// ProductNotFoundError indicates a sale item references a missing product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == product.ErrNotFound
}

// FinalizedError carries the status that blocks a modification.
type FinalizedError struct {
	ID     int64
	Status Status
}

func (e *FinalizedError) Error() string {
	return fmt.Sprintf("sale %d is %s and cannot be modified", e.ID, e.Status)
}

func (e *FinalizedError) Is(target error) bool {
	return target == ErrFinalized
}

// Sale is a persisted sale with its items.
type Sale struct {
	ID           int64
	Code         string
	CustomerName string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SaleDiscount money.Money
	GrossTotal   money.Money
	Total        money.Money
	Items        []Item
}

// Item is a persisted sale line.
type Item struct {
	ID           int64
	ProductID    int64
	ProductName  string
	Quantity     int64
	UnitPrice    money.Money
	ItemDiscount money.Money
	Gross        money.Money
	Total        money.Money
}

// Inputs returns the items as calculator input, keeping their discounts.
func (s *Sale) Inputs() []LineInput {
	in := make([]LineInput, len(s.Items))
	for i, it := range s.Items {
		in[i] = LineInput{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			ItemDiscount: it.ItemDiscount,
		}
	}
	return in
}

// apply copies a calculation result onto the sale, replacing its items.
func (s *Sale) apply(res CalculationResult, names map[int64]string) {
	s.SaleDiscount = res.SaleDiscount
	s.GrossTotal = res.GrossTotal
	s.Total = res.SaleTotal
	s.Items = make([]Item, len(res.Items))
	for i, l := range res.Items {
		s.Items[i] = Item{
			ProductID:    l.ProductID,
			ProductName:  names[l.ProductID],
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			ItemDiscount: l.ItemDiscount,
			Gross:        l.Gross,
			Total:        l.Net,
		}
	}
}

// Draft is the input for creating a sale. An empty Status means open.
type Draft struct {
	Code         string
	CustomerName string
	Status       Status
	SaleDiscount *money.Money
	Items        []LineInput
}

// Patch is a partial update. Nil fields are left unchanged; a non-empty Items
// replaces all items.
type Patch struct {
	Code         *string
	CustomerName *string
	Status       *Status
	SaleDiscount *money.Money
	Items        []LineInput
}

// Filter selects sales for listing. From is inclusive and Before exclusive.
type Filter struct {
	Page   int
	Limit  int
	From   *time.Time
	Before *time.Time
	Search string
	Status *Status
}

// Offset returns the number of rows to skip for the filter's page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes the page returned by List.
type Pagination struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// Summary aggregates every sale matched by a filter, not only the page.
type Summary struct {
	TotalAmount  money.Money
	SaleCount    int64
	ItemQuantity int64
}

// ListResult is the outcome of List.
type ListResult struct {
	Sales      []Sale
	Pagination Pagination
	Summary    Summary
}

// Tx is the set of writes available inside a store transaction.
type Tx interface {
	GetForUpdate(ctx context.Context, id int64) (*Sale, error)
	Insert(ctx context.Context, s *Sale) error
	Update(ctx context.Context, s *Sale) error
	ReplaceItems(ctx context.Context, saleID int64, items []Item) error
	Delete(ctx context.Context, id int64) error
}

// Store persists sales. InTx runs fn in a single transaction, committing when
// fn returns nil and rolling back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, f Filter) ([]Sale, int64, Summary, error)
}

// ProductFinder resolves products referenced by sale items.
type ProductFinder interface {
	FindProduct(ctx context.Context, id int64) (product.Product, error)
}
