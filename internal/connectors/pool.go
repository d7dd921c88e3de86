package connectors

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn for every index in [0, n) on at most workers goroutines.
// A failed unit is handed to onErr and never cancels its siblings; only ctx
// cancellation stops the loop early.
func ForEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error, onErr func(i int, err error)) error {
	if workers <= 0 {
		workers = 1
	}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := fn(ctx, i); err != nil && ctx.Err() == nil && onErr != nil {
				mu.Lock()
				onErr(i, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
