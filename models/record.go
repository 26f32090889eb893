// Package models defines the data structures shared across the scraper.
package models

// Record is a flat, schema-complete mapping from column name to scalar or
// homogeneous-list value. Column order is fixed by the schema that produced
// the record; absent source values are stored as explicit nils so every
// record of an entity type carries the same column set.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord builds an empty record with the given column order. Every column
// starts as nil.
func NewRecord(columns []string) *Record {
	cols := make([]string, len(columns))
	copy(cols, columns)
	values := make(map[string]any, len(cols))
	for _, c := range cols {
		values[c] = nil
	}
	return &Record{columns: cols, values: values}
}

// Set assigns a value to a column. Unknown columns are appended to the
// column order.
func (r *Record) Set(column string, v any) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = v
}

// Get returns the value of a column, or nil when the column is unknown.
func (r *Record) Get(column string) any {
	return r.values[column]
}

// Columns returns the column order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the values in column order.
func (r *Record) Values() []any {
	out := make([]any, 0, len(r.columns))
	for _, c := range r.columns {
		out = append(out, r.values[c])
	}
	return out
}

// StringList returns the value of a column as a string slice when it holds
// one, or nil otherwise.
func (r *Record) StringList(column string) []string {
	if v, ok := r.values[column].([]string); ok {
		return v
	}
	return nil
}

// Int returns the value of a column as an int64 plus an ok flag.
func (r *Record) Int(column string) (int64, bool) {
	v, ok := r.values[column].(int64)
	return v, ok
}

// AggregatedBrand is a brand record plus the product IDs merged across all of
// the brand's listing pages.
type AggregatedBrand struct {
	Slug     string
	Record   *Record
	Products []string
}
