// Package pipeline coordinates batching, de-duplication, and sink writing for
// normalized records.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
)

// ErrPipelineClosed is returned when Process is called after shutdown.
var ErrPipelineClosed = errors.New("pipeline: closed")

// RecordWriter defines the interface for record sinks.
type RecordWriter interface {
	Write(records []*models.Record) error
	Close() error
	Validate() error
}

// Options configures a Pipeline.
type Options struct {
	// Entity labels metric updates.
	Entity string
	// KeyColumn is the column used for de-duplication. Empty disables
	// de-duplication.
	KeyColumn string
	// BatchSize is the number of records accumulated before a sink write.
	BatchSize int
	// BufferSize bounds the submission channel.
	BufferSize int
	// DedupeMaxSize caps the de-duplication cache.
	DedupeMaxSize int
	// Metrics may be nil.
	Metrics *fetch.Metrics
}

// Pipeline coordinates de-duplication, batching, and output writing. The first
// sink error latches, shuts the pipeline down, and is reported by Close.
type Pipeline struct {
	writer    RecordWriter
	recordCh  chan *models.Record
	batchSize int
	entity    string
	keyColumn string
	metrics   *fetch.Metrics

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline over a sink.
func NewPipeline(writer RecordWriter, opts Options) (*Pipeline, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 512
	}

	var seen *lru.Cache[string, struct{}]
	if opts.KeyColumn != "" {
		size := opts.DedupeMaxSize
		if size <= 0 {
			size = 100000
		}
		cache, err := lru.New[string, struct{}](size)
		if err != nil {
			return nil, fmt.Errorf("dedupe cache: %w", err)
		}
		seen = cache
	}

	return &Pipeline{
		writer:    writer,
		recordCh:  make(chan *models.Record, opts.BufferSize),
		batchSize: opts.BatchSize,
		entity:    opts.Entity,
		keyColumn: opts.KeyColumn,
		metrics:   opts.Metrics,
		seen:      seen,
		shutdown:  make(chan struct{}),
	}, nil
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for downstream batching.
func (p *Pipeline) Process(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := p.enqueue(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to drain the queue and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Record, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rec := range p.recordCh {
		if p.isDuplicate(rec) {
			p.metrics.IncRecordFailure(p.entity, "duplicate")
			continue
		}
		p.metrics.IncRecords(p.entity)
		batch = append(batch, rec)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) isDuplicate(rec *models.Record) bool {
	if p.seen == nil {
		return false
	}
	key := dedupeKey(rec.Get(p.keyColumn))
	if key == "" {
		return false
	}
	_, dup := p.seen.Get(key)
	if !dup {
		p.seen.Add(key, struct{}{})
	}
	return dup
}

func dedupeKey(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func (p *Pipeline) enqueue(rec *models.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- rec:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}
