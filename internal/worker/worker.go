package worker

import (
	"context"
	"sync"
)

// Task is one unit of work handed to a worker.
type Task[T any] struct {
	Index int
	Item  T
}

// Run applies fn to every item using n workers and returns the results in
// input order. Items not yet started when ctx is cancelled are not run; their
// result slot is filled by onCancel.
func Run[T, R any](ctx context.Context, n int, items []T, fn func(ctx context.Context, workerID int, item T) R, onCancel func(item T, err error) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if n < 1 {
		n = 1
	}
	n = min(n, len(items))

	tasks := make(chan Task[T], n)
	var wg sync.WaitGroup

	// Spawn the worker pool
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range tasks {
				if err := ctx.Err(); err != nil {
					results[task.Index] = onCancel(task.Item, err)
					continue
				}
				results[task.Index] = fn(ctx, workerID, task.Item)
			}
		}(i)
	}

	for i, item := range items {
		tasks <- Task[T]{Index: i, Item: item}
	}
	close(tasks)
	wg.Wait()

	return results
}
