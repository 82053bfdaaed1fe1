// Package parallel runs a batch of independent tasks concurrently and
// collects their results in input order.
//
// The transition manager uses it to run every loader of a navigation at once.
// The first failing task cancels the context shared by the batch, so a
// redirect or error from one loader stops the others early. Tasks that had not started when the batch was cancelled are
// skipped and produce neither a result nor an error.
//
//	cfg := parallel.DefaultConfig()
//	result, err := parallel.ProcessParallel(ctx, cfg, ids, func(ctx context.Context, id string) (any, error) {
//	    return load(ctx, id)
//	})
//	var taskErr *parallel.TaskError[string]
//	if errors.As(err, &taskErr) {
//	    log.Printf("%s failed: %v", taskErr.Item, taskErr.Err)
//	}
package parallel
