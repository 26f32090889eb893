// Package pipeline provides dual output writing to CSV and Postgres.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/schema"
)

// DualWriter outputs to both the CSV file and the Postgres table
// simultaneously.
type DualWriter struct {
	csvWriter *CSVWriter
	pgWriter  *PostgresWriter
	mu        sync.Mutex
}

// NewDualWriter creates both sinks for one entity schema.
func NewDualWriter(ctx context.Context, csvFilename, dsn string, s *schema.Schema) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	pgWriter, err := NewPostgresWriter(ctx, dsn, s)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create postgres writer: %w", err)
	}

	return &DualWriter{
		csvWriter: csvWriter,
		pgWriter:  pgWriter,
	}, nil
}

// Write writes records to both sinks.
func (dw *DualWriter) Write(records []*models.Record) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(records); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := dw.pgWriter.Write(records); err != nil {
		return fmt.Errorf("postgres write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close failed: %w", err))
	}
	if err := dw.pgWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("postgres close failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Validate validates both sinks.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("csv validation failed: %w", err))
	}
	if err := dw.pgWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("postgres validation failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
