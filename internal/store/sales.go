package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNoFields is returned by Update when the params carry nothing to set.
var ErrNoFields = errors.New("no fields to update")

// SalesRecord is one row of the sales table as served by the API. Every
// column except the id is nullable, so optional fields are pointers and
// the date is its ISO string form.
type SalesRecord struct {
	ID             int64    `json:"id"`
	Outlet         *string  `json:"outlet"`
	Date           *string  `json:"date"`
	Day            *string  `json:"day"`
	GuestCount     *int64   `json:"guest_count"`
	Category       *string  `json:"category"`
	Quantity       *int64   `json:"quantity"`
	CostPrice      *float64 `json:"cost_price"`
	SellingPrice   *float64 `json:"selling_price"`
	TotalSales     *float64 `json:"total_sales"`
	TotalCostPrice *float64 `json:"total_cost_price"`
	Profit         *float64 `json:"profit"`
}

// SalesRecordParams carries the writable columns for inserts and
// updates. Nil means "not provided": absent on insert, untouched on
// update.
type SalesRecordParams struct {
	Outlet         *string  `json:"outlet"`
	Date           *string  `json:"date"`
	Day            *string  `json:"day"`
	GuestCount     *int64   `json:"guest_count"`
	Category       *string  `json:"category"`
	Quantity       *int64   `json:"quantity"`
	CostPrice      *float64 `json:"cost_price"`
	SellingPrice   *float64 `json:"selling_price"`
	TotalSales     *float64 `json:"total_sales"`
	TotalCostPrice *float64 `json:"total_cost_price"`
	Profit         *float64 `json:"profit"`
}

// columns returns the (name, value) pairs that are set, in a fixed
// order so generated SQL is deterministic.
func (p SalesRecordParams) columns() ([]string, []any) {
	var names []string
	var values []any
	add := func(name string, present bool, v any) {
		if present {
			names = append(names, name)
			values = append(values, v)
		}
	}
	add("outlet", p.Outlet != nil, p.Outlet)
	add("date", p.Date != nil, p.Date)
	add("day", p.Day != nil, p.Day)
	add("guest_count", p.GuestCount != nil, p.GuestCount)
	add("category", p.Category != nil, p.Category)
	add("quantity", p.Quantity != nil, p.Quantity)
	add("cost_price", p.CostPrice != nil, p.CostPrice)
	add("selling_price", p.SellingPrice != nil, p.SellingPrice)
	add("total_sales", p.TotalSales != nil, p.TotalSales)
	add("total_cost_price", p.TotalCostPrice != nil, p.TotalCostPrice)
	add("profit", p.Profit != nil, p.Profit)
	return names, values
}

const selectColumns = `id, outlet, date, day, guest_count, category, quantity,
	cost_price, selling_price, total_sales, total_cost_price, profit`

func scanRecord(row pgx.Row) (*SalesRecord, error) {
	var rec SalesRecord
	var date pgtype.Date
	err := row.Scan(&rec.ID, &rec.Outlet, &date, &rec.Day, &rec.GuestCount,
		&rec.Category, &rec.Quantity, &rec.CostPrice, &rec.SellingPrice,
		&rec.TotalSales, &rec.TotalCostPrice, &rec.Profit)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		iso := date.Time.Format("2006-01-02")
		rec.Date = &iso
	}
	return &rec, nil
}

// List returns up to limit records in id order.
func (c *Client) List(ctx context.Context, limit int) ([]SalesRecord, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY id LIMIT $1", selectColumns, c.tableIdent())
	rows, err := c.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []SalesRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (c *Client) Get(ctx context.Context, id int64) (*SalesRecord, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectColumns, c.tableIdent())
	rec, err := scanRecord(c.pool.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// Insert creates a record and returns it with its assigned id.
func (c *Client) Insert(ctx context.Context, params SalesRecordParams) (*SalesRecord, error) {
	names, values := params.columns()
	if len(names) == 0 {
		return nil, ErrNoFields
	}

	idents := make([]string, len(names))
	placeholders := make([]string, len(names))
	for i, n := range names {
		idents[i] = pgIdent(n)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		c.tableIdent(), strings.Join(idents, ", "), strings.Join(placeholders, ", "), selectColumns)

	rec, err := scanRecord(c.pool.QueryRow(ctx, sql, values...))
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// Update sets the provided fields on the record with the given id and
// returns the updated row. Fields left nil keep their current values.
func (c *Client) Update(ctx context.Context, id int64, params SalesRecordParams) (*SalesRecord, error) {
	names, values := params.columns()
	if len(names) == 0 {
		return nil, ErrNoFields
	}

	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = fmt.Sprintf("%s = $%d", pgIdent(n), i+1)
	}
	values = append(values, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		c.tableIdent(), strings.Join(sets, ", "), len(values), selectColumns)

	rec, err := scanRecord(c.pool.QueryRow(ctx, sql, values...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes the record with the given id, or returns ErrNotFound.
func (c *Client) Delete(ctx context.Context, id int64) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.tableIdent())
	tag, err := c.pool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RowCount reports how many records the table holds.
func (c *Client) RowCount(ctx context.Context) (int64, error) {
	var n int64
	sql := fmt.Sprintf("SELECT count(*) FROM %s", c.tableIdent())
	if err := c.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
