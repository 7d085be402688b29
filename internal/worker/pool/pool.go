package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most limit calls in flight and returns the
// results in input order. fn reports per-item failure through its result, so
// one failing item never stops the others.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range items {
		i := i
		g.Go(func() error {
			results[i] = fn(ctx, items[i])
			return nil
		})
	}
	g.Wait()

	return results
}
