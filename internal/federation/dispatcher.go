package federation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Dispatcher runs a Plan's jobs concurrently across a fixed worker
// pool: fixed worker goroutines draining a buffered job channel, a
// per-job timeout, and a graceful Shutdown via close+WaitGroup,
// generalized from HTTP webhook delivery retries to federated source
// query execution.
type Dispatcher struct {
	workers int
	timeout time.Duration

	jobCh chan dispatchJob
	wg    sync.WaitGroup
	quit  chan struct{}
}

type dispatchJob struct {
	index  int
	job    Job
	result chan<- jobResult
}

type jobResult struct {
	index   int
	sources []model.SourceResultItem
	err     error
}

// NewDispatcher starts workers goroutines, each draining the internal
// job channel until Shutdown is called.
func NewDispatcher(workers int, perSourceTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		workers: workers,
		timeout: perSourceTimeout,
		jobCh:   make(chan dispatchJob, workers*4),
		quit:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			return
		case job, ok := <-d.jobCh:
			if !ok {
				return
			}
			d.run(job)
		}
	}
}

func (d *Dispatcher) run(dj dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	done := make(chan jobResult, 1)
	go func() {
		rows, err := dj.job.Source.Query(dj.job.Query)
		done <- jobResult{index: dj.index, sources: rows, err: err}
	}()

	select {
	case res := <-done:
		dj.result <- res
	case <-ctx.Done():
		dj.result <- jobResult{index: dj.index, err: fmt.Errorf("federation: source %s timed out", dj.job.Source.Name())}
	}
}

// Execute runs every job in plan concurrently, bounded by the worker
// pool, and returns each source's rows in plan order so the merger can
// preserve per-source contiguity. A single source's failure is
// reported per-job rather than aborting the whole query.
func (d *Dispatcher) Execute(plan *Plan) ([][]model.SourceResultItem, []error) {
	n := len(plan.Jobs)
	results := make([][]model.SourceResultItem, n)
	errs := make([]error, n)

	resultCh := make(chan jobResult, n)
	for i, job := range plan.Jobs {
		d.jobCh <- dispatchJob{index: i, job: job, result: resultCh}
	}
	for i := 0; i < n; i++ {
		res := <-resultCh
		results[res.index] = res.sources
		errs[res.index] = res.err
	}

	return results, errs
}

// Shutdown stops accepting new work and waits for in-flight jobs to
// finish, mirroring webhooks.Dispatcher.Shutdown.
func (d *Dispatcher) Shutdown() {
	close(d.quit)
	d.wg.Wait()
}
