package concurrent

import (
	"golang.org/x/sync/errgroup"
)

// Each runs action for every item in its own goroutine and waits for all of
// them. It returns the first error encountered.
func Each[T any](items []T, action func(T) error) error {
	return EachLimit(items, -1, action)
}

// EachLimit is Each with at most limit goroutines running at once. A negative
// limit means no limit.
func EachLimit[T any](items []T, limit int, action func(T) error) error {
	g := errgroup.Group{}
	g.SetLimit(limit)
	for _, item := range items {
		item := item // per-iteration copy; go directive lowered to 1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			return action(item)
		})
	}
	return g.Wait()
}

// EachMust runs action for every item concurrently and waits for all of them.
func EachMust[T any](items []T, action func(T)) {
	_ = Each(items, func(item T) error {
		action(item)
		return nil
	})
}
