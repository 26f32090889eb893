package pipeline

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/schema"
)

// insertChunkSize bounds the number of rows per INSERT statement.
const insertChunkSize = 1000

// PostgresWriter writes records into the entity table, creating it on first
// use. Inserts are chunked multi-row statements.
type PostgresWriter struct {
	pool    *pgxpool.Pool
	table   string
	columns []string
}

// NewPostgresWriter connects to the database and ensures the entity table
// exists.
func NewPostgresWriter(ctx context.Context, dsn string, s *schema.Schema) (*PostgresWriter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, s.CreateTableSQL()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table %s: %w", s.Table, err)
	}

	return &PostgresWriter{
		pool:    pool,
		table:   s.Table,
		columns: s.Columns(),
	}, nil
}

// Write inserts records in chunks.
func (pw *PostgresWriter) Write(records []*models.Record) error {
	ctx := context.Background()
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertChunk(ctx context.Context, records []*models.Record) error {
	builder := sq.Insert(pw.table).
		Columns(pw.columns...).
		PlaceholderFormat(sq.Dollar)

	for _, rec := range records {
		values := make([]any, 0, len(pw.columns))
		for _, col := range pw.columns {
			values = append(values, rec.Get(col))
		}
		builder = builder.Values(values...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := pw.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", pw.table, err)
	}
	return nil
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	pw.pool.Close()
	return nil
}

// Validate checks the connection is still usable.
func (pw *PostgresWriter) Validate() error {
	if err := pw.pool.Ping(context.Background()); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
