// Package ingest implements the spreadsheet ingestion pipeline: header
// normalization, fuzzy mapping of source columns onto the fixed sales
// schema, type coercion, and handoff to the bulk loader.
//
// A cell that cannot be parsed becomes an absent value, and a target
// column with no plausible source header stays empty for the whole run;
// neither ever fails a batch. Only systemic failures (unreadable input,
// store rejection) abort a run.
package ingest

// ColumnType is the type family of a target column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeDate
	TypeInteger
	TypeDecimal
)

// Column is one destination column: database name plus type family.
type Column struct {
	Name string
	Type ColumnType
}

// TargetSchema is the ordered set of destination columns. Column order is
// stable and defines the load order of the bulk payload.
type TargetSchema []Column

// Names returns the column names in schema order.
func (s TargetSchema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// SalesSchema is the fixed layout of the TRP sales table.
var SalesSchema = TargetSchema{
	{Name: "outlet", Type: TypeText},
	{Name: "date", Type: TypeDate},
	{Name: "day", Type: TypeText},
	{Name: "guest_count", Type: TypeInteger},
	{Name: "category", Type: TypeText},
	{Name: "quantity", Type: TypeInteger},
	{Name: "cost_price", Type: TypeDecimal},
	{Name: "selling_price", Type: TypeDecimal},
	{Name: "total_sales", Type: TypeDecimal},
	{Name: "total_cost_price", Type: TypeDecimal},
	{Name: "profit", Type: TypeDecimal},
}
