package utils

import (
	"context"
	"sync"
)

// Worker represents a worker function that processes one item
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool manages a pool of workers processing items concurrently.
//
// Workers are started by ProcessItems and stop when the items run out or
// ctx is cancelled; items not yet picked up at cancellation keep a zero
// result and a nil error. ProcessItems blocks until every worker returns.
// Panics in workers are recovered and converted to PanicError.
//
//	pool := NewWorkerPool(4, func(ctx context.Context, id string) (*types.IngestResult, error) {
//	    return client.Ingest(ctx, id)
//	})
//	results, errs := pool.ProcessItems(ctx, ids)
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = GetSemaphoreLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

type indexed[T any] struct {
	item  T
	index int
}

// ProcessItems processes items using the worker pool. Results and errors
// are in the order of items.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	itemsChan := make(chan indexed[T], len(items))
	for i, item := range items {
		itemsChan <- indexed[T]{item: item, index: i}
	}
	close(itemsChan)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// cancellation wins over remaining items
				if ctx.Err() != nil {
					return
				}
				select {
				case it, ok := <-itemsChan:
					if !ok {
						return
					}
					func() {
						defer RecoverWithCallback(func(err error) {
							errs[it.index] = err
						})
						results[it.index], errs[it.index] = wp.worker(ctx, it.item)
					}()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
	return results, errs
}
