// Package flusher fans a bulk page write-back out across a bounded worker
// pool so a large sweep doesn't serialize behind one goroutine per dirty
// frame, while still reporting the first write failure back to the caller.
package flusher

import (
	"fmt"

	"github.com/panjf2000/ants"
	"golang.org/x/sync/errgroup"
)

// Job is one unit of write-back work: an opaque identifier plus the write
// itself. The identifier is only used for error messages.
type Job struct {
	Label string
	Write func() error
}

// Pool bounds the concurrency of a batch of write-back jobs using a
// persistent goroutine pool (github.com/panjf2000/ants), reused across
// FlushAllPages calls instead of spun up fresh each time.
type Pool struct {
	workers *ants.Pool
}

// New creates a Pool with the given worker cap.
func New(workers int) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}
	p, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("flusher: creating worker pool: %w", err)
	}
	return &Pool{workers: p}, nil
}

// Close releases the underlying worker pool.
func (p *Pool) Close() {
	p.workers.Release()
}

// Run dispatches every job onto the bounded worker pool and waits for all
// of them to finish, returning the first error encountered (if any). Jobs
// already submitted continue to run to completion; flusher does not cancel
// in-flight disk writes on a sibling failure.
func (p *Pool) Run(jobs []Job) error {
	var g errgroup.Group

	for _, job := range jobs {
		job := job
		done := make(chan error, 1)

		if err := p.workers.Submit(func() {
			done <- job.Write()
		}); err != nil {
			return fmt.Errorf("flusher: submitting job %q: %w", job.Label, err)
		}

		g.Go(func() error {
			if err := <-done; err != nil {
				return fmt.Errorf("flusher: job %q: %w", job.Label, err)
			}
			return nil
		})
	}

	return g.Wait()
}
