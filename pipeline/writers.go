package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/okravets/go-scrape-sephora/models"
)

// CSVWriter appends records to a CSV file. The header row comes from the
// column order of the first record written into an empty file, so reruns
// against an existing file extend it without repeating the header.
type CSVWriter struct {
	file      *os.File
	writer    *csv.Writer
	mu        sync.Mutex
	hasHeader bool
}

// NewCSVWriter opens the file for appending, creating it if needed.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	return &CSVWriter{
		file:      f,
		writer:    csv.NewWriter(f),
		hasHeader: info.Size() > 0,
	}, nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []*models.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, rec := range records {
		if !cw.hasHeader {
			if err := cw.writer.Write(rec.Columns()); err != nil {
				return fmt.Errorf("write csv header: %w", err)
			}
			cw.hasHeader = true
		}

		row := make([]string, 0, len(rec.Columns()))
		for _, v := range rec.Values() {
			row = append(row, formatValue(v))
		}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// formatValue renders one record value as a CSV cell. Nil becomes the empty
// string and string lists use the array literal form the relational sink also
// understands.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return arrayLiteral(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func arrayLiteral(items []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(item, `"`, `\"`))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
