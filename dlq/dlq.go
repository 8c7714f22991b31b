// Package dlq provides the dead letter queue view over a store.Store.
// Unlike the teacher, which keeps DLQ entries in a separate
// collection created by a Push step, taskq's dead jobs are simply
// jobs in job.StateDead: the same collection, filtered. Service is a
// thin, named entry point for that view so callers (in particular the
// CLI) don't reach into store.Store's general List/ListDLQ/
// RetryFromDLQ surface directly.
package dlq

import (
	"context"

	"github.com/taskq-dev/taskq/job"
	"github.com/taskq-dev/taskq/store"
)

// Service exposes dead-letter-queue operations over a store.Store.
type Service struct {
	store store.Store
}

// NewService returns a Service backed by s.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// List returns every dead job, newest-first by updated_at.
func (s *Service) List(ctx context.Context) ([]*job.Job, error) {
	return s.store.ListDLQ(ctx)
}

// Retry revives jobID in place: attempts reset to zero, error and
// next_retry_at cleared, state set to pending. Fails with a
// PreconditionError if jobID is not currently dead.
func (s *Service) Retry(ctx context.Context, jobID string) error {
	return s.store.RetryFromDLQ(ctx, jobID)
}
