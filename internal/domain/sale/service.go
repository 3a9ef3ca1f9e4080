package sale

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
)

// DefaultLimit is the page size used when a filter does not set one.
const DefaultLimit = 10

// Service encapsulates sale business logic.
type Service struct {
	store        Store
	products     ProductFinder
	defaultLimit int
}

// NewService creates a sale Service. A non-positive defaultLimit falls back
// to DefaultLimit.
func NewService(store Store, products ProductFinder, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{
		store:        store,
		products:     products,
		defaultLimit: defaultLimit,
	}
}

// resolveProducts returns product names keyed by ID, failing with
// *ProductNotFoundError on the first missing product.
func (s *Service) resolveProducts(ctx context.Context, items []LineInput) (map[int64]string, error) {
	names := make(map[int64]string, len(items))
	for _, it := range items {
		if _, ok := names[it.ProductID]; ok {
			continue
		}
		p, err := s.products.FindProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: it.ProductID}
			}
			return nil, fmt.Errorf("find product %d: %w", it.ProductID, err)
		}
		names[it.ProductID] = p.Name
	}
	return names, nil
}

// Create validates product references, computes totals and persists the sale
// with its items in one transaction.
func (s *Service) Create(ctx context.Context, d Draft) (*Sale, error) {
	names, err := s.resolveProducts(ctx, d.Items)
	if err != nil {
		return nil, err
	}

	status := d.Status
	if status == "" {
		status = StatusOpen
	}

	sl := &Sale{
		Code:         d.Code,
		CustomerName: d.CustomerName,
		Status:       status,
	}
	sl.apply(ComputeTotals(CalculationRequest{
		SaleDiscount: d.SaleDiscount,
		Items:        d.Items,
	}), names)

	if err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, sl)
	}); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	return s.Get(ctx, sl.ID)
}

// Get returns a sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	sl, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale %d: %w", id, err)
	}
	return sl, nil
}

// List returns one page of sales ordered by creation time, newest first,
// together with pagination data and totals over the whole filter.
func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = s.defaultLimit
	}

	sales, total, summary, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	totalPages := int(total / int64(f.Limit))
	if total%int64(f.Limit) != 0 {
		totalPages++
	}

	return &ListResult{
		Sales: sales,
		Pagination: Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
		Summary: summary,
	}, nil
}

// Update applies a patch to an open sale.
//
// When Items is set the items are replaced and totals recomputed with the
// patch's sale discount, or the item discounts when none is given. When only
// SaleDiscount is set the existing items are recomputed against it with their
// item discounts reset.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Sale, error) {
	var names map[int64]string
	if len(p.Items) > 0 {
		var err error
		if names, err = s.resolveProducts(ctx, p.Items); err != nil {
			return nil, err
		}
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		sl, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sl.Status.Finalized() {
			return &FinalizedError{ID: sl.ID, Status: sl.Status}
		}

		if p.Code != nil {
			sl.Code = *p.Code
		}
		if p.CustomerName != nil {
			sl.CustomerName = *p.CustomerName
		}
		if p.Status != nil {
			sl.Status = *p.Status
		}

		itemsChanged := false
		switch {
		case len(p.Items) > 0:
			sl.apply(ComputeTotals(CalculationRequest{
				SaleDiscount: p.SaleDiscount,
				Items:        p.Items,
			}), names)
			itemsChanged = true
		case p.SaleDiscount != nil && len(sl.Items) > 0:
			existing := make(map[int64]string, len(sl.Items))
			inputs := sl.Inputs()
			for i, it := range sl.Items {
				existing[it.ProductID] = it.ProductName
				inputs[i].ItemDiscount = money.Zero
			}
			sl.apply(ComputeTotals(CalculationRequest{
				SaleDiscount: p.SaleDiscount,
				Items:        inputs,
			}), existing)
			itemsChanged = true
		}

		if err := tx.Update(ctx, sl); err != nil {
			return err
		}
		if itemsChanged {
			return tx.ReplaceItems(ctx, sl.ID, sl.Items)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update sale %d: %w", id, err)
	}

	return s.Get(ctx, id)
}

// Delete removes an open sale and its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		sl, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sl.Status.Finalized() {
			return &FinalizedError{ID: sl.ID, Status: sl.Status}
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete sale %d: %w", id, err)
	}
	return nil
}
