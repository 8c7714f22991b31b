package store

import (
	"context"
	"sync"
	"time"

	"github.com/taskq-dev/taskq"
	"github.com/taskq-dev/taskq/job"
)

// Memory is an in-process Store backed by a map guarded by a mutex.
// It implements the full transition engine in store/engine.go and is
// intended for tests and single-process embedding; it does not
// survive process restart. Grounded on the teacher's
// store/memory/store.go, trimmed to taskq's narrower state machine.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*job.Job
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*job.Job)}
}

func (m *Memory) Enqueue(_ context.Context, in EnqueueInput) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return enqueue(m.jobs, in, time.Now())
}

func (m *Memory) ClaimNext(_ context.Context, workerID string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := claimNext(m.jobs, workerID, time.Now())
	if j == nil {
		return nil, nil
	}
	return j.Clone(), nil
}

func (m *Memory) Complete(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := complete(m.jobs, jobID, time.Now())
	return err
}

func (m *Memory) Fail(_ context.Context, jobID, errMsg string, backoffBase float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fail(m.jobs, jobID, errMsg, backoffBase, time.Now())
	return err
}

func (m *Memory) Cancel(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := cancel(m.jobs, jobID, time.Now())
	return err
}

func (m *Memory) RetryFromDLQ(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := retryFromDLQ(m.jobs, jobID, time.Now())
	return err
}

func (m *Memory) Get(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	return j.Clone(), nil
}

func (m *Memory) List(_ context.Context, state job.State) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return list(m.jobs, state), nil
}

func (m *Memory) ListDLQ(_ context.Context) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return listDLQ(m.jobs), nil
}

func (m *Memory) Status(_ context.Context) (StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return status(m.jobs), nil
}

func (m *Memory) Metrics(_ context.Context) (Metrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return computeMetrics(m.jobs), nil
}

var _ Store = (*Memory)(nil)
