// Package schema implements the declarative normalization engine that maps
// raw nested API documents to flat, schema-complete records.
//
// An entity schema is a table of fields; each field names a target column, a
// dotted source path into the raw document, a type coercion, and an optional
// transform. One generic engine interprets the table, so adding an entity
// type means declaring data, not writing code.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okravets/go-scrape-sephora/models"
)

// Coercion converts a raw JSON value to the target scalar type before the
// field transform runs.
type Coercion int

const (
	// CoerceNone passes the raw value through.
	CoerceNone Coercion = iota
	// CoerceString requires a string.
	CoerceString
	// CoerceInt converts numbers, bools, and digit strings to int64.
	CoerceInt
	// CoerceFloat converts numbers and numeric strings to float64.
	CoerceFloat
	// CoerceBoolInt converts bools and case-insensitive "true"/"false"
	// strings to 1/0; any other string becomes nil.
	CoerceBoolInt
)

// Transform is a pure function applied to a coerced field value. Returning an
// error fails the whole record.
type Transform func(v any) (any, error)

// Field describes one target column of a normalized record.
type Field struct {
	Target string
	// Source is a dotted path into the raw document. Empty means the
	// transform computes the value from the whole document; an empty source
	// with no transform declares a placeholder column filled in by the
	// caller.
	Source    string
	Coerce    Coercion
	Transform Transform
	// SQLType is the column type used when the relational sink creates the
	// entity table.
	SQLType string
}

// Schema is the declarative mapping for one entity type.
type Schema struct {
	Entity   string
	Table    string
	SerialPK string
	Fields   []Field
}

// Columns returns the target column names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		cols = append(cols, f.Target)
	}
	return cols
}

// CreateTableSQL returns the DDL for the entity table, including the
// synthetic serial primary key.
func (s *Schema) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.Table)
	fmt.Fprintf(&b, "\t%s serial PRIMARY KEY", s.SerialPK)
	for _, f := range s.Fields {
		fmt.Fprintf(&b, ",\n\t%s %s", f.Target, f.SQLType)
	}
	b.WriteString(")")
	return b.String()
}

// Normalize maps a raw document to a flat record. The record always carries
// the full column set: absent source values stay explicit nils. Any coercion
// or transform failure aborts the record with a NormalizationError carrying
// the source identifier.
func (s *Schema) Normalize(id string, doc map[string]any) (*models.Record, error) {
	rec := models.NewRecord(s.Columns())

	for _, f := range s.Fields {
		var v any
		if f.Source == "" {
			if f.Transform == nil {
				continue
			}
			v = doc
		} else {
			v = Lookup(doc, f.Source)
			if v == nil {
				continue
			}
		}

		v, err := coerce(v, f.Coerce)
		if err != nil {
			return nil, &NormalizationError{Entity: s.Entity, ID: id, Field: f.Target, Err: err}
		}
		if f.Transform != nil && v != nil {
			v, err = f.Transform(v)
			if err != nil {
				return nil, &NormalizationError{Entity: s.Entity, ID: id, Field: f.Target, Err: err}
			}
		}
		rec.Set(f.Target, v)
	}

	return rec, nil
}

// Lookup walks a dotted path through nested JSON objects. A missing key or a
// non-object intermediate yields nil.
func Lookup(doc map[string]any, path string) any {
	var v any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return v
}

func coerce(v any, c Coercion) (any, error) {
	switch c {
	case CoerceNone:
		return v, nil

	case CoerceString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case CoerceInt:
		switch t := v.(type) {
		case float64:
			return int64(t), nil
		case int:
			return int64(t), nil
		case int64:
			return t, nil
		case bool:
			if t {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", t)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)

	case CoerceFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", t)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)

	case CoerceBoolInt:
		switch t := v.(type) {
		case bool:
			if t {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			return int64(t), nil
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true":
				return int64(1), nil
			case "false":
				return int64(0), nil
			}
			return nil, nil
		}
		return nil, nil
	}

	return nil, fmt.Errorf("unknown coercion %d", c)
}

// NormalizationError reports a field-level failure that voided a record.
type NormalizationError struct {
	Entity string
	ID     string
	Field  string
	Err    error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s %s: field %s: %v", e.Entity, e.ID, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}
