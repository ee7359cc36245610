// Package dispatch fans work out concurrently and gathers every outcome
// into a tagged success/failure list, never short-circuiting on the first
// error.
package dispatch

import (
	"context"
	"sync"
)

// Result is one settled outcome: the item it belongs to and the error its
// delivery produced, if any.
type Result[T any] struct {
	Item T
	Err  error
}

// Fulfilled reports whether the delivery succeeded.
func (r Result[T]) Fulfilled() bool {
	return r.Err == nil
}

// Results holds one entry per dispatched item, in input order.
type Results[T any] []Result[T]

// Sent counts fulfilled deliveries.
func (rs Results[T]) Sent() int {
	n := 0
	for _, r := range rs {
		if r.Fulfilled() {
			n++
		}
	}
	return n
}

// Failed counts rejected deliveries.
func (rs Results[T]) Failed() int {
	return len(rs) - rs.Sent()
}

// Errs returns the rejection reasons, skipping fulfilled entries.
func (rs Results[T]) Errs() []error {
	var errs []error
	for _, r := range rs {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// All runs fn for every item concurrently and waits for every delivery to
// settle. One failure never cancels the others; the caller reads per-item
// outcomes from the returned Results.
func All[T any](ctx context.Context, items []T, fn func(context.Context, T) error) Results[T] {
	results := make(Results[T], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Result[T]{Item: item, Err: fn(ctx, item)}
		}()
	}
	wg.Wait()

	return results
}
