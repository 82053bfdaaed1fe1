package parallel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/transition/observability"
)

const (
	EventParallelStart    observability.EventType = "parallel.start"
	EventParallelComplete observability.EventType = "parallel.complete"
	EventWorkerStart      observability.EventType = "parallel.worker.start"
	EventWorkerComplete   observability.EventType = "parallel.worker.complete"
)

const source = "parallel.ProcessParallel"

// TaskProcessor handles one item.
type TaskProcessor[TItem, TResult any] func(ctx context.Context, item TItem) (TResult, error)

// ProcessParallel runs processor over items concurrently.
//
// The returned error is the first *TaskError to occur, chronologically, and
// the context passed to the remaining tasks is cancelled. Cancellation of
// ctx itself is reported as a wrapped ctx.Err().
func ProcessParallel[TItem, TResult any](
	ctx context.Context,
	cfg Config,
	items []TItem,
	processor TaskProcessor[TItem, TResult],
) (ParallelResult[TItem, TResult], error) {
	observer := cfg.Observer
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	result := ParallelResult[TItem, TResult]{
		Results: make([]TResult, len(items)),
		Done:    make([]bool, len(items)),
	}

	workers := workerCount(cfg.MaxWorkers, len(items))

	observer.OnEvent(ctx, observability.Event{
		Type:      EventParallelStart,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    source,
		Data: map[string]any{
			"item_count":   len(items),
			"worker_count": workers,
		},
	})

	if len(items) == 0 {
		complete(ctx, observer, 0, 0, false)
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex

	for i, item := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			observer.OnEvent(gctx, observability.Event{
				Type:      EventWorkerStart,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    source,
				Data:      map[string]any{"item_index": i, "total_items": len(items)},
			})

			value, err := processor(gctx, item)

			observer.OnEvent(gctx, observability.Event{
				Type:      EventWorkerComplete,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    source,
				Data:      map[string]any{"item_index": i, "total_items": len(items), "error": err != nil},
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				taskErr := TaskError[TItem]{Index: i, Item: item, Err: err}
				result.Errors = append(result.Errors, taskErr)
				return &taskErr
			}

			result.Results[i] = value
			result.Done[i] = true
			return nil
		})
	}

	firstErr := g.Wait()

	sort.Slice(result.Errors, func(a, b int) bool {
		return result.Errors[a].Index < result.Errors[b].Index
	})

	completed := result.Completed()

	if err := ctx.Err(); err != nil {
		complete(ctx, observer, completed, len(result.Errors), true)
		return result, fmt.Errorf("parallel execution cancelled: %w", err)
	}

	if firstErr != nil {
		complete(ctx, observer, completed, len(result.Errors), true)
		return result, firstErr
	}

	complete(ctx, observer, completed, len(result.Errors), false)
	return result, nil
}

func complete(ctx context.Context, observer observability.Observer, processed, failed int, failure bool) {
	observer.OnEvent(ctx, observability.Event{
		Type:      EventParallelComplete,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    source,
		Data: map[string]any{
			"items_processed": processed,
			"items_failed":    failed,
			"error":           failure,
		},
	})
}
