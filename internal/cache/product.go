// Package cache provides the injected product cache used by sale workflows.
//
// A bounded in-process LRU with per-entry TTL always backs the cache. An
// optional Redis store shares entries between instances; when Redis is
// unreachable the cache keeps serving from the local store and only logs.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
)

// Config controls cache sizing and expiry.
type Config struct {
	TTL    time.Duration
	Size   int
	Prefix string
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Size <= 0 {
		c.Size = 1000
	}
	if c.Prefix == "" {
		c.Prefix = "sales:product:"
	}
	return c
}

// ProductCache is a TTL+LRU product lookup with an optional Redis tier.
// It is safe for concurrent use.
type ProductCache struct {
	cfg    Config
	local  *expirable.LRU[int64, product.Product]
	remote redis.UniversalClient
}

// NewProductCache creates a cache. remote may be nil for a local-only cache.
func NewProductCache(cfg Config, remote redis.UniversalClient) *ProductCache {
	cfg = cfg.withDefaults()
	return &ProductCache{
		cfg:    cfg,
		local:  expirable.NewLRU[int64, product.Product](cfg.Size, nil, cfg.TTL),
		remote: remote,
	}
}

func (c *ProductCache) key(id int64) string {
	return c.cfg.Prefix + strconv.FormatInt(id, 10)
}

// Get returns the cached product, reporting a miss when neither tier has it.
func (c *ProductCache) Get(ctx context.Context, id int64) (product.Product, bool) {
	if p, ok := c.local.Get(id); ok {
		return p, true
	}
	if c.remote == nil {
		return product.Product{}, false
	}

	data, err := c.remote.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zctx.From(ctx).Warn("Product cache remote read failed, using local store",
				zap.Int64("product_id", id),
				zap.Error(err),
			)
		}
		return product.Product{}, false
	}

	p, err := decodeProduct(data)
	if err != nil {
		zctx.From(ctx).Warn("Dropping malformed cached product",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
		_ = c.remote.Del(ctx, c.key(id)).Err()
		return product.Product{}, false
	}
	c.local.Add(id, p)
	return p, true
}

// Set stores p in both tiers.
func (c *ProductCache) Set(ctx context.Context, p product.Product) {
	c.local.Add(p.ID, p)
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, c.key(p.ID), encodeProduct(p), c.cfg.TTL).Err(); err != nil {
		zctx.From(ctx).Warn("Product cache remote write failed",
			zap.Int64("product_id", p.ID),
			zap.Error(err),
		)
	}
}

// Invalidate removes id from both tiers.
func (c *ProductCache) Invalidate(ctx context.Context, id int64) {
	c.local.Remove(id)
	if c.remote == nil {
		return
	}
	if err := c.remote.Del(ctx, c.key(id)).Err(); err != nil {
		zctx.From(ctx).Warn("Product cache remote invalidation failed",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
	}
}

// Len returns the number of locally cached entries.
func (c *ProductCache) Len() int {
	return c.local.Len()
}

func encodeProduct(p product.Product) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Str(p.Price.String())
	e.ObjEnd()
	return e.Bytes()
}

func decodeProduct(data []byte) (product.Product, error) {
	var p product.Product
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			p.ID = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "price":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p.Price, err = money.Parse(v)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode product")
	}
	return p, nil
}
