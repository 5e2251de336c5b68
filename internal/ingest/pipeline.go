package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Loader loads a coerced table into the target store as one atomic
// operation and reports how many rows were committed.
type Loader interface {
	Load(ctx context.Context, table CanonicalTable) (int64, error)
}

// RunReport summarizes one completed ingestion run.
type RunReport struct {
	RunID    string        `json:"run_id"`
	Rows     int           `json:"rows"`
	Loaded   int64         `json:"loaded"`
	Mapping  ColumnMapping `json:"mapping"`
	Unmapped []string      `json:"unmapped,omitempty"`
	Duration int64         `json:"duration_ms"`
}

// Pipeline runs one spreadsheet through normalization, mapping, coercion,
// and the bulk loader. It holds no state between runs: the mapping and
// the canonical table are computed fresh per invocation and discarded.
type Pipeline struct {
	schema TargetSchema
	loader Loader
}

// New creates a pipeline targeting the given schema.
func New(schema TargetSchema, loader Loader) *Pipeline {
	return &Pipeline{schema: schema, loader: loader}
}

// Run ingests one raw table: headers in original column order, data rows
// positional beneath them. Cell-level problems never fail the run; a
// loader rejection fails the whole run with nothing committed.
func (p *Pipeline) Run(ctx context.Context, headers []string, rows [][]string) (*RunReport, error) {
	start := time.Now()

	normalized, idx := MakeHeaderIndex(headers)
	mapping := MapColumns(p.schema, normalized)
	table := BuildTable(p.schema, idx, rows, mapping)

	loaded, err := p.loader.Load(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("bulk load: %w", err)
	}

	var unmapped []string
	for _, col := range p.schema {
		if _, ok := mapping[col.Name]; !ok {
			unmapped = append(unmapped, col.Name)
		}
	}

	return &RunReport{
		RunID:    uuid.New().String(),
		Rows:     len(rows),
		Loaded:   loaded,
		Mapping:  mapping,
		Unmapped: unmapped,
		Duration: time.Since(start).Milliseconds(),
	}, nil
}
