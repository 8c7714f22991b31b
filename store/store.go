// Package store defines the durable job collection and its
// transactional operations, and provides two implementations: an
// in-process Memory store for tests, and a cross-process File store
// backed by a JSON file and an advisory lock (store/filelock).
//
// Every operation below executes as a single atomic transaction: it
// observes the effects of all prior completed operations, and a
// failed mutation leaves the on-disk (or in-memory) state unchanged.
package store

import (
	"context"
	"time"

	"github.com/taskq-dev/taskq"
	"github.com/taskq-dev/taskq/job"
)

// StaleLockHorizon is how long a job may sit in StateProcessing
// without being reclaimed: past this, the previous holder is presumed
// crashed and the job becomes claimable again. Shared with
// filelock.StaleHorizon via taskq.StaleLockHorizon so both reclaim
// paths use the same 5-minute number.
const StaleLockHorizon = taskq.StaleLockHorizon

// EnqueueInput carries the caller-supplied fields for Store.Enqueue.
// Zero values for Priority, MaxRetries, and TimeoutMS take the
// defaults in the job package; a zero ID causes one to be generated.
type EnqueueInput struct {
	ID         string
	Command    string
	Priority   int
	MaxRetries int
	TimeoutMS  int64
}

// StatusCounts maps each job state to the number of jobs currently in
// it.
type StatusCounts map[job.State]int

// Metrics summarizes the job collection. AvgCompletionLatency is the
// mean of (UpdatedAt - CreatedAt) across completed jobs only. When
// Total is zero, every derived field is zero.
type Metrics struct {
	Total                int
	Completed            int
	SuccessRate          float64
	AvgCompletionLatency time.Duration
}

// Store is the durable, transactional persistence contract for the
// job collection.
type Store interface {
	// Enqueue validates and persists a new job in StatePending.
	Enqueue(ctx context.Context, in EnqueueInput) (*job.Job, error)

	// ClaimNext selects and claims the next runnable job for
	// workerID, per the dispatch policy, transitioning it to
	// StateProcessing. Returns nil, nil if no job is eligible.
	ClaimNext(ctx context.Context, workerID string) (*job.Job, error)

	// Complete marks a StateProcessing job StateCompleted.
	Complete(ctx context.Context, jobID string) error

	// Fail applies the retry policy: reschedule with backoff, or move
	// to the dead letter queue if the job has exhausted max_retries.
	Fail(ctx context.Context, jobID, errMsg string, backoffBase float64) error

	// Cancel transitions a pending, failed, or dead job to
	// StateCancelled. Rejected with a PreconditionError from
	// StateProcessing or StateCompleted.
	Cancel(ctx context.Context, jobID string) error

	// RetryFromDLQ revives a StateDead job in place: attempts reset to
	// zero, error and next_retry_at cleared, state set to pending.
	RetryFromDLQ(ctx context.Context, jobID string) error

	// Get retrieves a single job by id.
	Get(ctx context.Context, jobID string) (*job.Job, error)

	// List returns jobs newest-first by CreatedAt. A zero state lists
	// every job regardless of state.
	List(ctx context.Context, state job.State) ([]*job.Job, error)

	// ListDLQ returns StateDead jobs, newest-first by UpdatedAt.
	ListDLQ(ctx context.Context) ([]*job.Job, error)

	// Status returns the count of jobs in each state.
	Status(ctx context.Context) (StatusCounts, error)

	// Metrics summarizes throughput and latency across the
	// collection.
	Metrics(ctx context.Context) (Metrics, error)
}
