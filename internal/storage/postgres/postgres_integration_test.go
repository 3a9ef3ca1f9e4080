//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
	"github.com/xenking/sales-api/internal/domain/sale"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sales",
				"POSTGRES_PASSWORD": "sales",
				"POSTGRES_DB":       "sales",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = testcontainers.TerminateContainer(ctr) }()

	host, err := ctr.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://sales:sales@%s:%s/sales?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	// The schema is idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "second migration run: %v\n", err)
		return 1
	}

	return m.Run()
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE sale_items, sales, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func seedProduct(t *testing.T, name, price string) int64 {
	t.Helper()
	id, err := NewProductRepository(testPool).Upsert(context.Background(), name, money.MustParse(price))
	require.NoError(t, err)
	return id
}

func buildSale(code string, items ...sale.Item) *sale.Sale {
	s := &sale.Sale{
		Code:         code,
		CustomerName: "Ana Souza",
		Status:       sale.StatusOpen,
		SaleDiscount: money.Zero,
		Items:        items,
	}
	for _, it := range items {
		s.GrossTotal = s.GrossTotal.Add(it.Gross)
		s.Total = s.Total.Add(it.Total)
	}
	return s
}

func item(productID, qty int64, price string) sale.Item {
	p := money.MustParse(price)
	return sale.Item{
		ProductID:    productID,
		Quantity:     qty,
		UnitPrice:    p,
		ItemDiscount: money.Zero,
		Gross:        p.MulInt(qty),
		Total:        p.MulInt(qty),
	}
}

func insert(t *testing.T, store *SaleStore, s *sale.Sale) {
	t.Helper()
	err := store.InTx(context.Background(), func(ctx context.Context, tx sale.Tx) error {
		return tx.Insert(ctx, s)
	})
	require.NoError(t, err)
}

func TestProductRepository(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	kb := seedProduct(t, "Keyboard", "149.90")
	mouse := seedProduct(t, "Mouse", "59.90")

	again := seedProduct(t, "Keyboard", "139.90")
	assert.Equal(t, kb, again, "upsert by name keeps the ID")

	p, err := repo.GetByID(ctx, kb)
	require.NoError(t, err)
	assert.Equal(t, "139.90", p.Price.String())

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, product.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p, err = repo.GetByID(ctx, mouse)
	require.NoError(t, err)
	assert.Equal(t, "Mouse", p.Name)
}

func TestSaleStore_InsertAndGet(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := NewSaleStore(testPool)

	kb := seedProduct(t, "Keyboard", "149.90")
	mouse := seedProduct(t, "Mouse", "59.90")

	s := buildSale("SALE-001", item(mouse, 2, "59.90"), item(kb, 1, "149.90"))
	insert(t, store, s)
	require.NotZero(t, s.ID)
	assert.NotZero(t, s.Items[0].ID)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "SALE-001", got.Code)
	assert.Equal(t, sale.StatusOpen, got.Status)
	assert.Equal(t, "269.70", got.GrossTotal.String())
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Mouse", got.Items[0].ProductName, "items keep input order")
	assert.Equal(t, "119.80", got.Items[0].Gross.String())
	assert.Equal(t, "Keyboard", got.Items[1].ProductName)

	_, err = store.Get(ctx, 12345)
	assert.ErrorIs(t, err, sale.ErrNotFound)
}

func TestSaleStore_DuplicateCode(t *testing.T) {
	resetTables(t)
	store := NewSaleStore(testPool)
	kb := seedProduct(t, "Keyboard", "149.90")

	insert(t, store, buildSale("DUP", item(kb, 1, "149.90")))

	err := store.InTx(context.Background(), func(ctx context.Context, tx sale.Tx) error {
		return tx.Insert(ctx, buildSale("DUP", item(kb, 1, "149.90")))
	})
	assert.ErrorIs(t, err, sale.ErrDuplicateCode)
}

func TestSaleStore_MissingProductRollsBack(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := NewSaleStore(testPool)

	err := store.InTx(ctx, func(ctx context.Context, tx sale.Tx) error {
		return tx.Insert(ctx, buildSale("GHOST", item(404, 1, "1.00")))
	})
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, total, _, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total, "sale row must not survive the failed item insert")
}

func TestSaleStore_UpdateReplaceDelete(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := NewSaleStore(testPool)
	kb := seedProduct(t, "Keyboard", "149.90")
	mouse := seedProduct(t, "Mouse", "59.90")

	s := buildSale("UPD", item(kb, 1, "149.90"))
	insert(t, store, s)

	err := store.InTx(ctx, func(ctx context.Context, tx sale.Tx) error {
		locked, err := tx.GetForUpdate(ctx, s.ID)
		if err != nil {
			return err
		}
		locked.CustomerName = "Bruno Lima"
		locked.Status = sale.StatusCompleted
		locked.Items = []sale.Item{item(mouse, 3, "59.90")}
		locked.GrossTotal = money.MustParse("179.70")
		locked.Total = money.MustParse("179.70")
		if err := tx.Update(ctx, locked); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, locked.ID, locked.Items)
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bruno Lima", got.CustomerName)
	assert.Equal(t, sale.StatusCompleted, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Mouse", got.Items[0].ProductName)
	assert.Equal(t, "179.70", got.Total.String())
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	err = store.InTx(ctx, func(ctx context.Context, tx sale.Tx) error {
		return tx.Delete(ctx, s.ID)
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, sale.ErrNotFound)

	var items int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM sale_items`).Scan(&items))
	assert.Zero(t, items, "items are removed with their sale")

	err = store.InTx(ctx, func(ctx context.Context, tx sale.Tx) error {
		return tx.Delete(ctx, s.ID)
	})
	assert.ErrorIs(t, err, sale.ErrNotFound)
}

func TestSaleStore_List(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := NewSaleStore(testPool)
	kb := seedProduct(t, "Keyboard", "10.00")

	for i, code := range []string{"A-1", "B_2", "C%3"} {
		s := buildSale(code, item(kb, int64(i+1), "10.00"))
		if i == 2 {
			s.Status = sale.StatusCancelled
			s.CustomerName = "Carla Dias"
		}
		insert(t, store, s)
	}

	sales, total, summary, err := store.List(ctx, sale.Filter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, sales, 2)
	assert.Equal(t, "C%3", sales[0].Code, "newest first")
	assert.Equal(t, "60.00", summary.TotalAmount.String())
	assert.Equal(t, int64(3), summary.SaleCount)
	assert.Equal(t, int64(6), summary.ItemQuantity)

	page2, _, _, err := store.List(ctx, sale.Filter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "A-1", page2[0].Code)
	require.Len(t, page2[0].Items, 1)

	cancelled := sale.StatusCancelled
	filtered, total, summary, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10, Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "30.00", summary.TotalAmount.String())
	require.Len(t, filtered, 1)

	t.Run("search escapes wildcards", func(t *testing.T) {
		found, total, _, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10, Search: "_"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "B_2", found[0].Code)

		_, total, _, err = store.List(ctx, sale.Filter{Page: 1, Limit: 10, Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("search matches customer name case-insensitively", func(t *testing.T) {
		found, _, _, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10, Search: "carla"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "C%3", found[0].Code)
	})

	t.Run("date range", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		none, total, summary, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10, From: &future})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, none)
		assert.True(t, summary.TotalAmount.IsZero())

		all, _, _, err := store.List(ctx, sale.Filter{Page: 1, Limit: 10, Before: &future})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
