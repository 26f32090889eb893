package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/okravets/go-scrape-sephora/models"
)

type mockWriter struct {
	mu       sync.Mutex
	batches  [][]*models.Record
	writeErr error
}

func (mw *mockWriter) Write(records []*models.Record) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	batch := make([]*models.Record, len(records))
	copy(batch, records)
	mw.batches = append(mw.batches, batch)
	return nil
}

func (mw *mockWriter) Close() error    { return nil }
func (mw *mockWriter) Validate() error { return nil }

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func record(id string) *models.Record {
	rec := models.NewRecord([]string{"id"})
	rec.Set("id", id)
	return rec
}

func TestPipelineBatchesAndFlushesRemainder(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, Options{Entity: "thing", BatchSize: 64})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.Start(1)

	records := make([]*models.Record, 0, 65)
	for i := 0; i < 65; i++ {
		records = append(records, record("id-"+strconv.Itoa(i)))
	}
	if err := p.Process(records); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := writer.totalWritten(); got != 65 {
		t.Fatalf("written = %d, want 65", got)
	}
	sizes := writer.batchSizes()
	if len(sizes) != 2 || sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineDeduplicatesOnKeyColumn(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, Options{Entity: "thing", KeyColumn: "id", BatchSize: 8})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.Start(1)

	if err := p.Process([]*models.Record{record("a"), record("b"), record("a"), record("a")}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := writer.totalWritten(); got != 2 {
		t.Fatalf("written = %d, want 2 after de-duplication", got)
	}
}

func TestPipelineRejectsAfterClose(t *testing.T) {
	p, err := NewPipeline(&mockWriter{}, Options{Entity: "thing"})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := p.Process([]*models.Record{record("late")}); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("Process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineLatchesFirstWriteError(t *testing.T) {
	writer := &mockWriter{writeErr: errors.New("disk full")}
	p, err := NewPipeline(writer, Options{Entity: "thing", BatchSize: 1})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.Start(1)

	// The first flush fails and shuts the pipeline down; later submissions
	// are rejected rather than silently dropped.
	p.Process([]*models.Record{record("a")})

	closeErr := p.Close()
	if closeErr == nil {
		t.Fatalf("Close should report the latched write error")
	}
	if got := p.Err(); got == nil {
		t.Fatalf("Err should return the latched error")
	}
}

func TestPipelineNilRecordsSkipped(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, Options{Entity: "thing"})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.Start(1)

	if err := p.Process([]*models.Record{nil, record("a"), nil}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := writer.totalWritten(); got != 1 {
		t.Fatalf("written = %d, want 1", got)
	}
}
