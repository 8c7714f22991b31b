package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taskq-dev/taskq/job"
	"github.com/taskq-dev/taskq/store"
)

// newStores returns one constructor per Store implementation so the
// conformance suite below runs identically against both.
func newStores(t *testing.T) map[string]store.Store {
	t.Helper()
	return map[string]store.Store{
		"memory": store.NewMemory(),
		"file":   store.NewFile(t.TempDir()),
	}
}

func TestEnqueueDefaults(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			j, err := s.Enqueue(ctx, store.EnqueueInput{Command: "echo hi"})
			if err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
			if j.State != job.StatePending {
				t.Errorf("State = %q, want pending", j.State)
			}
			if j.Priority != job.DefaultPriority {
				t.Errorf("Priority = %d, want %d", j.Priority, job.DefaultPriority)
			}
			if j.MaxRetries != job.DefaultMaxRetries {
				t.Errorf("MaxRetries = %d, want %d", j.MaxRetries, job.DefaultMaxRetries)
			}
			if j.TimeoutMS != job.DefaultTimeoutMS {
				t.Errorf("TimeoutMS = %d, want %d", j.TimeoutMS, job.DefaultTimeoutMS)
			}
			if j.ID == "" {
				t.Error("ID should be generated when not supplied")
			}
		})
	}
}

func TestEnqueueRejectsEmptyCommand(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Enqueue(context.Background(), store.EnqueueInput{Command: "   "}); err == nil {
				t.Fatal("expected a validation error for a blank command")
			}
		})
	}
}

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Enqueue(ctx, store.EnqueueInput{ID: "dup", Command: "echo 1"}); err != nil {
				t.Fatalf("first Enqueue: %v", err)
			}
			if _, err := s.Enqueue(ctx, store.EnqueueInput{ID: "dup", Command: "echo 2"}); err == nil {
				t.Fatal("expected an error enqueuing a colliding id")
			}
		})
	}
}

func TestClaimNextRespectsPriorityThenAge(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "low-pri-old", Command: "x", Priority: 5})
			time.Sleep(2 * time.Millisecond)
			mustEnqueue(t, s, store.EnqueueInput{ID: "high-pri-new", Command: "x", Priority: 1})
			mustEnqueue(t, s, store.EnqueueInput{ID: "low-pri-new", Command: "x", Priority: 5})

			j, err := s.ClaimNext(ctx, "worker_1")
			if err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if j.ID != "high-pri-new" {
				t.Errorf("claimed %q, want high-pri-new (lower priority number wins)", j.ID)
			}

			j, err = s.ClaimNext(ctx, "worker_1")
			if err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if j.ID != "low-pri-old" {
				t.Errorf("claimed %q, want low-pri-old (oldest breaks the priority tie)", j.ID)
			}
		})
	}
}

func TestClaimNextReturnsNilWhenEmpty(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			j, err := s.ClaimNext(context.Background(), "worker_1")
			if err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if j != nil {
				t.Errorf("expected nil job, got %+v", j)
			}
		})
	}
}

func TestCompleteRequiresProcessing(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x"})
			if err := s.Complete(ctx, "j1"); err == nil {
				t.Fatal("expected an error completing a pending job")
			}
			if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Complete(ctx, "j1"); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			got, err := s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StateCompleted {
				t.Errorf("State = %q, want completed", got.State)
			}
		})
	}
}

func TestFailReschedulesUntilMaxRetries(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x", MaxRetries: 2})

			if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Fail(ctx, "j1", "boom", 2); err != nil {
				t.Fatalf("Fail: %v", err)
			}
			got, err := s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StateFailed {
				t.Fatalf("State = %q, want failed after attempt 1/2", got.State)
			}
			if got.NextRetryAt == nil {
				t.Fatal("NextRetryAt should be set after a retryable failure")
			}

			// A failed job is claimable only once NextRetryAt has passed.
			time.Sleep(time.Until(*got.NextRetryAt) + 10*time.Millisecond)

			if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Fail(ctx, "j1", "boom again", 2); err != nil {
				t.Fatalf("Fail: %v", err)
			}
			got, err = s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StateDead {
				t.Errorf("State = %q, want dead after exhausting max_retries", got.State)
			}
			if got.NextRetryAt != nil {
				t.Error("NextRetryAt should be cleared once a job is dead")
			}
		})
	}
}

func TestCancelRejectsProcessingAndCompleted(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x"})
			if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Cancel(ctx, "j1"); err == nil {
				t.Fatal("expected an error cancelling a processing job")
			}
			if err := s.Complete(ctx, "j1"); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if err := s.Cancel(ctx, "j1"); err == nil {
				t.Fatal("expected an error cancelling a completed job")
			}
		})
	}
}

func TestCancelPendingSucceeds(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x"})
			if err := s.Cancel(ctx, "j1"); err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			got, err := s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StateCancelled {
				t.Errorf("State = %q, want cancelled", got.State)
			}
		})
	}
}

func TestRetryFromDLQRevivesInPlace(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x", MaxRetries: 1})
			if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Fail(ctx, "j1", "boom", 2); err != nil {
				t.Fatalf("Fail: %v", err)
			}
			got, err := s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StateDead {
				t.Fatalf("State = %q, want dead before revival", got.State)
			}

			if err := s.RetryFromDLQ(ctx, "j1"); err != nil {
				t.Fatalf("RetryFromDLQ: %v", err)
			}
			got, err = s.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != job.StatePending {
				t.Errorf("State = %q, want pending after revival", got.State)
			}
			if got.Attempts != 0 {
				t.Errorf("Attempts = %d, want 0 after revival", got.Attempts)
			}
			if got.Error != nil {
				t.Error("Error should be cleared after revival")
			}
		})
	}
}

func TestRetryFromDLQRejectsNonDead(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x"})
			if err := s.RetryFromDLQ(ctx, "j1"); err == nil {
				t.Fatal("expected an error reviving a job that isn't dead")
			}
		})
	}
}

func TestConcurrentClaimNextNeverDoublesAJob(t *testing.T) {
	// P4 / spec.md §8 scenario 6: distinct workers racing ClaimNext
	// against a shared store must never both receive the same job.
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 20
			for i := 0; i < n; i++ {
				mustEnqueue(t, s, store.EnqueueInput{ID: fmt.Sprintf("j%d", i), Command: "x"})
			}

			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				claims = make(map[string]int)
			)
			for w := 0; w < n; w++ {
				wg.Add(1)
				go func(workerID string) {
					defer wg.Done()
					j, err := s.ClaimNext(ctx, workerID)
					if err != nil {
						t.Errorf("ClaimNext(%s): %v", workerID, err)
						return
					}
					if j == nil {
						return
					}
					mu.Lock()
					claims[j.ID]++
					mu.Unlock()
				}(fmt.Sprintf("worker_%d", w))
			}
			wg.Wait()

			claimedTotal := 0
			for id, count := range claims {
				claimedTotal += count
				if count > 1 {
					t.Errorf("job %q claimed %d times, want at most 1", id, count)
				}
			}
			if claimedTotal != n {
				t.Errorf("claimed %d distinct jobs, want all %d claimed exactly once", claimedTotal, n)
			}
		})
	}
}

func TestStatusCountsAndMetrics(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustEnqueue(t, s, store.EnqueueInput{ID: "j1", Command: "x"})
			mustEnqueue(t, s, store.EnqueueInput{ID: "j2", Command: "x"})
			claimed, err := s.ClaimNext(ctx, "worker_1")
			if err != nil {
				t.Fatalf("ClaimNext: %v", err)
			}
			if err := s.Complete(ctx, claimed.ID); err != nil {
				t.Fatalf("Complete: %v", err)
			}

			counts, err := s.Status(ctx)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			total := 0
			for _, n := range counts {
				total += n
			}
			if total != 2 {
				t.Errorf("total job count = %d, want 2", total)
			}

			m, err := s.Metrics(ctx)
			if err != nil {
				t.Fatalf("Metrics: %v", err)
			}
			if m.Total != 2 {
				t.Errorf("Metrics.Total = %d, want 2", m.Total)
			}
		})
	}
}

func mustEnqueue(t *testing.T, s store.Store, in store.EnqueueInput) *job.Job {
	t.Helper()
	j, err := s.Enqueue(context.Background(), in)
	if err != nil {
		t.Fatalf("Enqueue(%+v): %v", in, err)
	}
	return j
}
