package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/sales-api/db"
	"github.com/xenking/sales-api/internal/cache"
	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/storage/postgres"
)

type productJSON struct {
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

func main() {
	var (
		databaseURL  string
		redisURL     string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL of the shared product cache to invalidate (or REDIS_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (defaults to the embedded catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, redisURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, redisURL, productsFile string) error {
	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Running instances may hold stale names in the shared cache.
	var remote redis.UniversalClient
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		remote = client
	}

	return seedProducts(ctx, postgres.NewProductRepository(pool), cache.NewProductCache(cache.Config{}, remote), products)
}

func loadProducts(path string) ([]productJSON, error) {
	data := db.Products
	if path != "" {
		slog.Info("reading products file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read products file")
		}
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	for i, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.Errorf("product %d has no name", i)
		}
		if p.Price.IsNegative() {
			return nil, errors.Errorf("product %q has a negative price", p.Name)
		}
	}
	return products, nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, pc *cache.ProductCache, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		id, err := repo.Upsert(ctx, p.Name, p.Price)
		if err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}
		pc.Invalidate(ctx, id)

		slog.Info("upserted product",
			slog.Int64("id", id),
			slog.String("name", p.Name),
			slog.String("price", p.Price.String()),
		)
	}

	return nil
}
