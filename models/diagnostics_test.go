package models

import (
	"strconv"
	"sync"
	"testing"
)

func TestDiagnosticsConcurrentAppends(t *testing.T) {
	diag := NewDiagnostics()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := strconv.Itoa(n)
			if n%2 == 0 {
				diag.AddNotFound(id)
			} else {
				diag.AddMalformed(id)
			}
		}(i)
	}
	wg.Wait()

	report := diag.Snapshot()
	if len(report.NotFound) != 50 {
		t.Fatalf("not found = %d, want 50", len(report.NotFound))
	}
	if len(report.Malformed) != 50 {
		t.Fatalf("malformed = %d, want 50", len(report.Malformed))
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	diag := NewDiagnostics()
	diag.AddNotFound("a")

	report := diag.Snapshot()
	report.NotFound[0] = "mutated"

	if got := diag.Snapshot().NotFound[0]; got != "a" {
		t.Fatalf("snapshot should not alias internal state, got %q", got)
	}
}
