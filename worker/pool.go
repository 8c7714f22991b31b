// Package worker runs a pool of independent loops that claim jobs
// from a store.Store, execute them through a runner.Runner, and
// report the outcome back. Grounded on the teacher's worker.Pool, cut
// down to taskq's single-queue, single-tenant dispatch policy and its
// subprocess (rather than in-process handler) execution model.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskq-dev/taskq/job"
	"github.com/taskq-dev/taskq/observability"
	"github.com/taskq-dev/taskq/runner"
	"github.com/taskq-dev/taskq/store"
)

// PollInterval is how long an idle worker sleeps between failed claim
// attempts before polling again.
const PollInterval = time.Second

// ShutdownWait bounds how long Stop waits for busy workers to finish
// their current job before reporting them orphaned.
const ShutdownWait = 30 * time.Second

// Stats is a snapshot of one worker's lifetime counters.
type Stats struct {
	ID        string
	Completed int64
	Failed    int64
	Busy      bool
}

// Pool runs Count independent worker loops against a shared store and
// runner.
type Pool struct {
	store       store.Store
	runner      *runner.Runner
	obs         *observability.Observer
	logger      *slog.Logger
	count       int
	backoffBase float64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	workers []*workerState
}

type workerState struct {
	id        string
	completed atomic.Int64
	failed    atomic.Int64
	busy      atomic.Bool
}

// New returns a Pool of count worker loops. backoffBase is forwarded
// to store.Store.Fail on every failure.
func New(s store.Store, r *runner.Runner, obs *observability.Observer, logger *slog.Logger, count int, backoffBase float64) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{
		store:       s,
		runner:      r,
		obs:         obs,
		logger:      logger,
		count:       count,
		backoffBase: backoffBase,
	}
}

// Start launches the worker loops. It returns immediately; call Stop
// to shut them down.
func (p *Pool) Start(_ context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.workers = make([]*workerState, p.count)

	for n := range p.count {
		ws := &workerState{id: fmt.Sprintf("worker_%d", n+1)}
		p.workers[n] = ws
		p.wg.Add(1)
		go p.loop(ws)
	}

	p.logger.Info("worker pool started", slog.Int("count", p.count))
}

// Stop clears the running flag so no worker claims a new job, then
// waits up to ShutdownWait for busy workers to finish. Workers still
// busy past the deadline are reported as orphaned; their jobs will be
// reclaimed through the store's stale-lock mechanism.
func (p *Pool) Stop() []string {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(ShutdownWait):
		orphaned := p.orphanedWorkers()
		p.logger.Warn("worker pool shutdown timed out", slog.Any("orphaned", orphaned))
		return orphaned
	}
}

// CancelRunning terminates the subprocess for jobID if a worker in
// this pool is currently running it. The job's own disposition
// follows normal failure handling once the worker observes the
// termination.
func (p *Pool) CancelRunning(jobID string) {
	p.runner.Cancel(jobID)
}

// Stats returns a snapshot of every worker's counters.
func (p *Pool) Stats() []Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stats, len(p.workers))
	for i, ws := range p.workers {
		out[i] = Stats{
			ID:        ws.id,
			Completed: ws.completed.Load(),
			Failed:    ws.failed.Load(),
			Busy:      ws.busy.Load(),
		}
	}
	return out
}

func (p *Pool) orphanedWorkers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var orphaned []string
	for _, ws := range p.workers {
		if ws.busy.Load() {
			orphaned = append(orphaned, ws.id)
		}
	}
	return orphaned
}

func (p *Pool) loop(ws *workerState) {
	defer p.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		j, err := p.store.ClaimNext(ctx, ws.id)
		if err != nil {
			p.logger.Error("claim error", slog.String("worker", ws.id), slog.String("error", err.Error()))
			p.sleep()
			continue
		}
		if j == nil {
			p.sleep()
			continue
		}

		ws.busy.Store(true)
		p.runJob(ctx, ws, j)
		ws.busy.Store(false)
	}
}

func (p *Pool) runJob(ctx context.Context, ws *workerState, j *job.Job) {
	end := p.obs.StartAttempt(ctx, j)
	timeout := time.Duration(j.TimeoutMS) * time.Millisecond

	_, runErr := p.runner.Run(ctx, j.ID, j.Command, timeout)

	if runErr == nil {
		end(true)
		ws.completed.Add(1)
		if err := p.store.Complete(ctx, j.ID); err != nil {
			p.logger.Error("failed to mark job completed",
				slog.String("worker", ws.id), slog.String("job_id", j.ID), slog.String("error", err.Error()))
		}
		return
	}

	end(false)
	ws.failed.Add(1)
	if err := p.store.Fail(ctx, j.ID, runErr.Error(), p.backoffBase); err != nil {
		p.logger.Error("failed to record job failure",
			slog.String("worker", ws.id), slog.String("job_id", j.ID), slog.String("error", err.Error()))
	}
}

func (p *Pool) sleep() {
	select {
	case <-time.After(PollInterval):
	case <-p.stopCh:
	}
}
