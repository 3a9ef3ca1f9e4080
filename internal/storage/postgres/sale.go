package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
	"github.com/xenking/sales-api/internal/domain/sale"
)

var (
	_ sale.Store = (*SaleStore)(nil)
	_ sale.Tx    = (*saleTx)(nil)
)

const saleColumns = `s.id, s.code, s.customer_name, s.status, s.sale_discount,
	s.gross_total, s.total, s.created_at, s.updated_at`

const itemColumns = `i.id, i.sale_id, i.product_id, p.name, i.quantity,
	i.unit_price, i.item_discount, i.gross, i.total`

// SaleStore implements sale.Store backed by PostgreSQL.
type SaleStore struct {
	pool *pgxpool.Pool
}

// NewSaleStore returns a SaleStore that uses the given pool.
func NewSaleStore(pool *pgxpool.Pool) *SaleStore {
	return &SaleStore{pool: pool}
}

// InTx runs fn inside a transaction that commits when fn returns nil.
func (s *SaleStore) InTx(ctx context.Context, fn func(ctx context.Context, tx sale.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &saleTx{q: tx})
	})
}

// Get returns a sale with its items, or sale.ErrNotFound.
func (s *SaleStore) Get(ctx context.Context, id int64) (*sale.Sale, error) {
	return getSale(ctx, s.pool, id, false)
}

// List returns one page of sales matching f, newest first, along with the
// number of matches and the summary over all of them.
func (s *SaleStore) List(ctx context.Context, f sale.Filter) ([]sale.Sale, int64, sale.Summary, error) {
	where, args := filterClause(f)

	var (
		summary sale.Summary
		amount  decimal.Decimal
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(s.total), 0),
		       COALESCE(SUM((SELECT SUM(i.quantity) FROM sale_items i WHERE i.sale_id = s.id)), 0)::bigint
		FROM sales s`+where, args...).Scan(&summary.SaleCount, &amount, &summary.ItemQuantity)
	if err != nil {
		return nil, 0, sale.Summary{}, fmt.Errorf("summarizing sales: %w", err)
	}
	summary.TotalAmount = money.FromDecimal(amount)

	if summary.SaleCount == 0 {
		return []sale.Sale{}, 0, summary, nil
	}

	n := len(args)
	args = append(args, f.Limit, f.Offset())
	rows, err := s.pool.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales s`+where+`
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, sale.Summary{}, fmt.Errorf("listing sales: %w", err)
	}
	sales, err := pgx.CollectRows(rows, scanSale)
	if err != nil {
		return nil, 0, sale.Summary{}, fmt.Errorf("listing sales: %w", err)
	}

	if err := loadItems(ctx, s.pool, sales); err != nil {
		return nil, 0, sale.Summary{}, err
	}
	return sales, summary.SaleCount, summary, nil
}

// filterClause builds the WHERE clause and its positional arguments.
func filterClause(f sale.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.From != nil {
		add("s.created_at >= ?", *f.From)
	}
	if f.Before != nil {
		add("s.created_at < ?", *f.Before)
	}
	if f.Status != nil {
		add("s.status = ?", string(*f.Status))
	}
	if f.Search != "" {
		add(`(s.code ILIKE ? ESCAPE '\' OR s.customer_name ILIKE ? ESCAPE '\')`, "%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type saleTx struct {
	q pgx.Tx
}

func (t *saleTx) GetForUpdate(ctx context.Context, id int64) (*sale.Sale, error) {
	return getSale(ctx, t.q, id, true)
}

func (t *saleTx) Insert(ctx context.Context, s *sale.Sale) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO sales (code, customer_name, status, sale_discount, gross_total, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.Code, s.CustomerName, string(s.Status),
		s.SaleDiscount.Decimal(), s.GrossTotal.Decimal(), s.Total.Decimal(),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "inserting sale")
	}
	return insertItems(ctx, t.q, s.ID, s.Items)
}

func (t *saleTx) Update(ctx context.Context, s *sale.Sale) error {
	err := t.q.QueryRow(ctx, `
		UPDATE sales
		SET code = $2, customer_name = $3, status = $4,
		    sale_discount = $5, gross_total = $6, total = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Code, s.CustomerName, string(s.Status),
		s.SaleDiscount.Decimal(), s.GrossTotal.Decimal(), s.Total.Decimal(),
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sale.ErrNotFound
		}
		return mapWriteError(err, fmt.Sprintf("updating sale %d", s.ID))
	}
	return nil
}

func (t *saleTx) ReplaceItems(ctx context.Context, saleID int64, items []sale.Item) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID); err != nil {
		return fmt.Errorf("deleting items of sale %d: %w", saleID, err)
	}
	return insertItems(ctx, t.q, saleID, items)
}

func (t *saleTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting sale %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return sale.ErrNotFound
	}
	return nil
}

// insertItems writes items in input order, filling in their IDs.
func insertItems(ctx context.Context, q querier, saleID int64, items []sale.Item) error {
	if len(items) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		b.Queue(`
			INSERT INTO sale_items
				(sale_id, product_id, position, quantity, unit_price, item_discount, gross, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			saleID, it.ProductID, i, it.Quantity,
			it.UnitPrice.Decimal(), it.ItemDiscount.Decimal(), it.Gross.Decimal(), it.Total.Decimal(),
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&it.ID)
		})
	}

	if err := q.SendBatch(ctx, b).Close(); err != nil {
		return mapWriteError(err, fmt.Sprintf("inserting items of sale %d", saleID))
	}
	return nil
}

func getSale(ctx context.Context, q querier, id int64, lock bool) (*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales s WHERE s.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale %d: %w", id, err)
	}
	sl, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %d: %w", id, err)
	}

	sales := []sale.Sale{sl}
	if err := loadItems(ctx, q, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// loadItems attaches items to sales in their stored order.
func loadItems(ctx context.Context, q querier, sales []sale.Sale) error {
	ids := make([]int64, len(sales))
	index := make(map[int64]int, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		index[s.ID] = i
		sales[i].Items = []sale.Item{}
	}

	rows, err := q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM sale_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.sale_id = ANY($1)
		ORDER BY i.sale_id, i.position`, ids)
	if err != nil {
		return fmt.Errorf("loading sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID                        int64
			it                            sale.Item
			price, discount, gross, total decimal.Decimal
		)
		if err := rows.Scan(&it.ID, &saleID, &it.ProductID, &it.ProductName, &it.Quantity,
			&price, &discount, &gross, &total); err != nil {
			return fmt.Errorf("scanning sale item: %w", err)
		}
		it.UnitPrice = money.FromDecimal(price)
		it.ItemDiscount = money.FromDecimal(discount)
		it.Gross = money.FromDecimal(gross)
		it.Total = money.FromDecimal(total)

		i := index[saleID]
		sales[i].Items = append(sales[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading sale items: %w", err)
	}
	return nil
}

func scanSale(row pgx.CollectableRow) (sale.Sale, error) {
	var (
		s                      sale.Sale
		status                 string
		discount, gross, total decimal.Decimal
	)
	if err := row.Scan(&s.ID, &s.Code, &s.CustomerName, &status,
		&discount, &gross, &total, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return sale.Sale{}, err
	}
	s.Status = sale.Status(status)
	s.SaleDiscount = money.FromDecimal(discount)
	s.GrossTotal = money.FromDecimal(gross)
	s.Total = money.FromDecimal(total)
	return s, nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error, op string) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return sale.ErrDuplicateCode
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w", op, product.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
