package cache

import (
	"context"
	"fmt"

	"github.com/xenking/sales-api/internal/domain/product"
)

// Catalog is a read-through product lookup: cache first, then the
// repository. Missing products are not cached.
type Catalog struct {
	repo  product.Repository
	cache *ProductCache
}

// NewCatalog wraps repo with cache.
func NewCatalog(repo product.Repository, cache *ProductCache) *Catalog {
	return &Catalog{repo: repo, cache: cache}
}

// FindProduct returns the product with the given ID or product.ErrNotFound.
func (c *Catalog) FindProduct(ctx context.Context, id int64) (product.Product, error) {
	if p, ok := c.cache.Get(ctx, id); ok {
		return p, nil
	}
	p, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, fmt.Errorf("load product %d: %w", id, err)
	}
	c.cache.Set(ctx, *p)
	return *p, nil
}

// List returns every product straight from the repository.
func (c *Catalog) List(ctx context.Context) ([]product.Product, error) {
	return c.repo.List(ctx)
}
