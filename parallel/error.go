package parallel

import "fmt"

// TaskError is the failure of one item.
type TaskError[TItem any] struct {
	// Index is the item's position in the input slice.
	Index int
	Item  TItem
	Err   error
}

func (e *TaskError[TItem]) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *TaskError[TItem]) Unwrap() error {
	return e.Err
}

// ParallelResult holds a batch outcome. Results is aligned with the input
// items; Done marks which positions completed successfully.
type ParallelResult[TItem, TResult any] struct {
	Results []TResult
	Done    []bool
	Errors  []TaskError[TItem]
}

// Completed counts successful items.
func (r ParallelResult[TItem, TResult]) Completed() int {
	n := 0
	for _, ok := range r.Done {
		if ok {
			n++
		}
	}
	return n
}
