package fakeplatform

import "golang.org/x/sync/errgroup"

// runConcurrently fires every due timer's callback in its own goroutine
// and waits for all of them, mirroring that a real device's timer ISRs
// are not ordered with respect to each other.
func runConcurrently(due []*timer) error {
	var g errgroup.Group
	for _, t := range due {
		cb := t.cb
		g.Go(func() error {
			cb()
			return nil
		})
	}
	return g.Wait()
}
