package parallel_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/transition/observability"
	"github.com/tailored-agentic-units/transition/parallel"
)

func TestProcessParallel_EmptyInput(t *testing.T) {
	rec := observability.NewRecorder()
	cfg := parallel.Config{Observer: rec}

	result, err := parallel.ProcessParallel(context.Background(), cfg, []string{},
		func(ctx context.Context, item string) (string, error) { return item, nil })

	if err != nil {
		t.Fatalf("expected no error for empty input, got: %v", err)
	}
	if len(result.Results) != 0 || len(result.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if rec.Count(parallel.EventParallelStart) != 1 || rec.Count(parallel.EventParallelComplete) != 1 {
		t.Errorf("expected start/complete events, got %v", rec.Types())
	}
}

func TestProcessParallel_OrderPreservation(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	result, err := parallel.ProcessParallel(context.Background(), parallel.DefaultConfig(), items,
		func(ctx context.Context, item int) (int, error) {
			time.Sleep(time.Duration(50-item) * 100 * time.Microsecond)
			return item * 2, nil
		})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	for i, v := range result.Results {
		if v != i*2 || !result.Done[i] {
			t.Errorf("result[%d] = %d (done=%v), want %d", i, v, result.Done[i], i*2)
		}
	}
	if result.Completed() != 50 {
		t.Errorf("Completed() = %d, want 50", result.Completed())
	}
}

func TestProcessParallel_RunsAllItemsConcurrently(t *testing.T) {
	const n = 4
	var started atomic.Int32
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := parallel.ProcessParallel(context.Background(), parallel.DefaultConfig(), make([]int, n),
			func(ctx context.Context, item int) (int, error) {
				started.Add(1)
				<-release
				return item, nil
			})
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for started.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("only %d of %d tasks started concurrently", started.Load(), n)
		case <-time.After(time.Millisecond):
		}
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProcessParallel_FailFastCancelsOthers(t *testing.T) {
	testErr := errors.New("loader failed")
	var cancelled atomic.Bool
	slowStarted := make(chan struct{})

	result, err := parallel.ProcessParallel(context.Background(), parallel.DefaultConfig(), []string{"slow", "bad"},
		func(ctx context.Context, item string) (string, error) {
			if item == "bad" {
				<-slowStarted
				return "", testErr
			}
			close(slowStarted)
			select {
			case <-ctx.Done():
				cancelled.Store(true)
				return "", ctx.Err()
			case <-time.After(2 * time.Second):
				return item, nil
			}
		})

	if !errors.Is(err, testErr) {
		t.Fatalf("err = %v, want %v", err, testErr)
	}

	var taskErr *parallel.TaskError[string]
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected *TaskError, got %T", err)
	}
	if taskErr.Index != 1 || taskErr.Item != "bad" {
		t.Errorf("TaskError = %+v, want index 1 item bad", taskErr)
	}
	if !cancelled.Load() {
		t.Error("slow task was not cancelled")
	}
	if result.Done[0] {
		t.Error("cancelled task reported as done")
	}
}

func TestProcessParallel_MaxWorkersBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	cfg := parallel.Config{MaxWorkers: 2}

	_, err := parallel.ProcessParallel(context.Background(), cfg, make([]int, 6),
		func(ctx context.Context, item int) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return item, nil
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestProcessParallel_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parallel.ProcessParallel(ctx, parallel.DefaultConfig(), []int{1, 2},
		func(ctx context.Context, item int) (int, error) {
			return 0, ctx.Err()
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestProcessParallel_WorkerEvents(t *testing.T) {
	rec := observability.NewRecorder()
	cfg := parallel.Config{Observer: rec}

	_, err := parallel.ProcessParallel(context.Background(), cfg, []int{1, 2, 3},
		func(ctx context.Context, item int) (int, error) { return item, nil })
	if err != nil {
		t.Fatal(err)
	}

	if got := rec.Count(parallel.EventWorkerStart); got != 3 {
		t.Errorf("worker start events = %d, want 3", got)
	}
	if got := rec.Count(parallel.EventWorkerComplete); got != 3 {
		t.Errorf("worker complete events = %d, want 3", got)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := parallel.DefaultConfig()
	rec := observability.NewRecorder()
	cfg.Merge(&parallel.Config{MaxWorkers: 3, Observer: rec})

	if cfg.MaxWorkers != 3 || cfg.Observer != rec {
		t.Errorf("merged config = %+v", cfg)
	}

	cfg.Merge(&parallel.Config{})
	if cfg.MaxWorkers != 3 {
		t.Error("zero values must not override")
	}
}
