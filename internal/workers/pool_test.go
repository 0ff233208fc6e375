package workers_test

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/workers"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	cfg := workers.DefaultPoolConfig("test")
	cfg.NumWorkers = 2
	pool := workers.NewPool(zap.NewNop(), cfg)
	pool.Start()
	defer pool.Stop()

	var completed int64
	const n = 50
	for i := 0; i < n; i++ {
		if err := pool.SubmitFunc(func() error {
			atomic.AddInt64(&completed, 1)
			return nil
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&completed) < n {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for tasks to complete, got %d/%d", atomic.LoadInt64(&completed), n)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	stats := pool.Stats()
	if stats.TasksCompleted != n {
		t.Errorf("expected %d completed tasks in stats, got %d", n, stats.TasksCompleted)
	}
	if stats.TasksFailed != 0 {
		t.Errorf("expected no failed tasks, got %d", stats.TasksFailed)
	}
}

func TestPoolRecordsFailedTasks(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.DefaultPoolConfig("test-fail"))
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	if err := pool.SubmitFunc(func() error {
		defer close(done)
		return errBoom
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the failing task to run")
	}

	// Give the pool a moment to record the failure after the task returns.
	time.Sleep(10 * time.Millisecond)
	if stats := pool.Stats(); stats.TasksFailed != 1 {
		t.Errorf("expected 1 failed task, got %d", stats.TasksFailed)
	}
}

func TestSubmitAfterStopReturnsError(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.DefaultPoolConfig("test-stop"))
	pool.Start()
	if err := pool.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := pool.SubmitFunc(func() error { return nil }); err != workers.ErrPoolStopped {
		t.Errorf("expected ErrPoolStopped after Stop, got %v", err)
	}
}

type sentinelError struct{}

func (sentinelError) Error() string { return "boom" }

var errBoom = sentinelError{}
