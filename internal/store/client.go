// Package store is the Postgres access layer. It owns the connection
// pool, the bulk COPY loader the ingestion pipeline writes through, and
// the row-level queries the API serves from.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps a pgx pool with the schema and table the sales data
// lives in. All queries are scoped to that one table.
type Client struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// New builds a client around an existing pool. The pool's lifecycle
// belongs to the caller until Close is called.
func New(pool *pgxpool.Pool, schema, table string) *Client {
	return &Client{pool: pool, schema: schema, table: table}
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (c *Client) Close() {
	c.pool.Close()
}

// tableIdent returns the schema-qualified, quoted table identifier.
func (c *Client) tableIdent() string {
	return pgIdent(c.schema) + "." + pgIdent(c.table)
}

// pgIdent quotes a Postgres identifier, preserving case and escaping
// embedded quotes.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
