package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-faster/errors"

	"github.com/xenking/sales-api/internal/cache"
	"github.com/xenking/sales-api/internal/domain/sale"
	"github.com/xenking/sales-api/internal/storage/postgres"
	"github.com/xenking/sales-api/internal/validation"
)

func main() {
	var (
		databaseURL string
		workers     int
		expected    uint
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "concurrent sale inserts")
	flag.UintVar(&expected, "expected", 1_000_000, "expected number of sales per file, sizes the bloom filters")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: sale-import [flags] FILE.ndjson[.gz] ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args(), workers, expected); err != nil {
		slog.Error("sale import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("sale import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, workers int, expected uint) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalog := cache.NewCatalog(
		postgres.NewProductRepository(pool),
		cache.NewProductCache(cache.Config{}, nil),
	)
	imp := &importer{
		sales:    sale.NewService(postgres.NewSaleStore(pool), catalog, 0),
		checker:  validation.NewChecker(),
		workers:  workers,
		expected: expected,
	}

	stats, err := imp.Run(ctx, files)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int64("created", stats.Created),
		slog.Int64("invalid", stats.Invalid),
		slog.Int64("duplicates", stats.Duplicates),
		slog.Int64("ambiguous", stats.Ambiguous),
		slog.Int64("missing_product", stats.MissingProduct),
	)
	return nil
}
