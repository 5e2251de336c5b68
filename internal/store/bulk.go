package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/trpdata/salesloader/internal/ingest"
)

// Load writes a canonical table into Postgres with a single COPY inside
// one transaction. Either every row lands or none do; any database
// error rolls the whole batch back and surfaces unchanged.
func (c *Client) Load(ctx context.Context, table ingest.CanonicalTable) (int64, error) {
	payload, err := EncodeCopy(table)
	if err != nil {
		return 0, err
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := conn.Conn().PgConn().CopyFrom(ctx, bytes.NewReader(payload), c.copySQL(table.Schema))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// copySQL builds the COPY statement for the target table. The payload
// carries a header row, so HEADER is part of the format.
func (c *Client) copySQL(schema ingest.TargetSchema) string {
	cols := make([]string, len(schema))
	for i, col := range schema {
		cols[i] = pgIdent(col.Name)
	}
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH CSV HEADER",
		c.tableIdent(), strings.Join(cols, ", "))
}

// EncodeCopy serializes a canonical table to the CSV payload COPY
// consumes: one header row of target column names, then one line per
// data row. Absent cells become empty fields, dates are rendered
// YYYY-MM-DD, and decimals keep their full precision.
func EncodeCopy(table ingest.CanonicalTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(table.Schema.Names()); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	record := make([]string, len(table.Schema))
	for i, row := range table.Rows {
		for j, cell := range row {
			s, err := renderCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, table.Schema[j].Name, err)
			}
			record[j] = s
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode copy payload: %w", err)
	}
	return buf.Bytes(), nil
}

func renderCell(cell any) (string, error) {
	switch v := cell.(type) {
	case nil:
		return "", nil
	case pgtype.Text:
		if !v.Valid {
			return "", nil
		}
		return v.String, nil
	case pgtype.Date:
		if !v.Valid {
			return "", nil
		}
		return v.Time.Format("2006-01-02"), nil
	case pgtype.Int8:
		if !v.Valid {
			return "", nil
		}
		return strconv.FormatInt(v.Int64, 10), nil
	case pgtype.Numeric:
		if !v.Valid {
			return "", nil
		}
		val, err := v.Value()
		if err != nil {
			return "", fmt.Errorf("render numeric: %w", err)
		}
		s, ok := val.(string)
		if !ok {
			return "", fmt.Errorf("render numeric: unexpected driver value %T", val)
		}
		return s, nil
	default:
		return "", fmt.Errorf("unsupported cell type %T", cell)
	}
}
