package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	if want := runtime.GOMAXPROCS(0); pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const numTasks = 100

	work := make([]func(), numTasks)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != numTasks {
		t.Errorf("counter = %d, want %d", counter.Load(), numTasks)
	}
}

func TestWorkerPool_ExecuteAll_EmptyAndNil(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	// Should not panic or block.
	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
	pool.ExecuteAll([]func(){nil, nil})
}

func TestWorkerPool_ExecuteAll_AfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool should not be running after Close")
	}

	var ran atomic.Int32
	pool.ExecuteAll([]func(){
		func() { ran.Add(1) },
		func() { ran.Add(1) },
	})
	if ran.Load() != 2 {
		t.Errorf("ran = %d after Close, want 2 (inline execution)", ran.Load())
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
}

// =============================================================================
// Bands Tests
// =============================================================================

func TestBands(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		parts int
		want  []Band
	}{
		{"even split", 8, 4, []Band{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"remainder goes first", 7, 3, []Band{{0, 3}, {3, 5}, {5, 7}}},
		{"more parts than rows", 2, 8, []Band{{0, 1}, {1, 2}}},
		{"zero parts", 5, 0, []Band{{0, 5}}},
		{"no rows", 0, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bands(tt.rows, tt.parts)
			if len(got) != len(tt.want) {
				t.Fatalf("Bands(%d, %d) = %v, want %v", tt.rows, tt.parts, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("band[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBands_CoverAllRows(t *testing.T) {
	for rows := 1; rows < 50; rows++ {
		for parts := 1; parts < 10; parts++ {
			total := 0
			prev := 0
			for _, b := range Bands(rows, parts) {
				if b.Start != prev {
					t.Fatalf("Bands(%d, %d): gap at %d", rows, parts, b.Start)
				}
				total += b.End - b.Start
				prev = b.End
			}
			if total != rows {
				t.Fatalf("Bands(%d, %d) covers %d rows", rows, parts, total)
			}
		}
	}
}
