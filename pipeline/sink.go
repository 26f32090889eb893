package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/okravets/go-scrape-sephora/schema"
)

// OpenWriter builds the sink for one entity according to the output format.
// CSV files land in outputDir named after the entity table.
func OpenWriter(ctx context.Context, format, outputDir, dsn string, s *schema.Schema) (RecordWriter, error) {
	csvPath := filepath.Join(outputDir, s.Table+".csv")
	switch format {
	case "csv":
		return NewCSVWriter(csvPath)
	case "postgres":
		return NewPostgresWriter(ctx, dsn, s)
	case "dual":
		return NewDualWriter(ctx, csvPath, dsn, s)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
