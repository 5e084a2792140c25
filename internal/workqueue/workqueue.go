// Package workqueue runs a batch of independent jobs through a bounded set
// of workers. It serves the places where build work fans out: staging file
// copies and multi-extension builds.
package workqueue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/joeyballentine/pasteboard/internal/logging"
)

var log = logging.L("workqueue")

// Job is one unit of work. Jobs observe their context for early cancellation.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes jobs with at most workers goroutines. The first failure
// cancels the context the remaining jobs see; queued jobs that have not
// started yet are skipped. The first error is returned. A panicking job is
// reported as an error instead of taking the process down.
func Run(ctx context.Context, workers int, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	queue := make(chan Job)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if runCtx.Err() != nil {
					log.Debug("job skipped", "job", job.Name)
					continue
				}
				if err := runJob(runCtx, job); err != nil {
					fail(err)
				}
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// runJob executes a single job with panic recovery.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "job", job.Name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()

	log.Debug("job started", "job", job.Name)
	return job.Run(ctx)
}
