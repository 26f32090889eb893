package models

import (
	"sync"
	"time"
)

// Diagnostics accumulates the identifiers of entities that failed terminally
// during a run. It is the only mutable state shared between pipeline workers,
// so every append goes through the mutex.
type Diagnostics struct {
	mu        sync.Mutex
	notFound  []string
	malformed []string
}

// NewDiagnostics returns an empty aggregator.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// AddNotFound records an identifier the API answered 404 for.
func (d *Diagnostics) AddNotFound(id string) {
	d.mu.Lock()
	d.notFound = append(d.notFound, id)
	d.mu.Unlock()
}

// AddMalformed records an identifier whose payload could not be normalized or
// whose fetch exhausted its retries.
func (d *Diagnostics) AddMalformed(id string) {
	d.mu.Lock()
	d.malformed = append(d.malformed, id)
	d.mu.Unlock()
}

// Snapshot returns copies of both lists.
func (d *Diagnostics) Snapshot() DiagnosticReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := DiagnosticReport{
		NotFound:  make([]string, len(d.notFound)),
		Malformed: make([]string, len(d.malformed)),
	}
	copy(report.NotFound, d.notFound)
	copy(report.Malformed, d.malformed)
	return report
}

// DiagnosticReport is the read-once end-of-run view of the diagnostics.
type DiagnosticReport struct {
	NotFound  []string
	Malformed []string
}

// RunResult holds the overall outcome of a scraping run.
type RunResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Brands      int
	Products    int
	Reviews     int
	Diagnostics DiagnosticReport
}
