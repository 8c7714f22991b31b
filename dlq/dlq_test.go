package dlq_test

import (
	"context"
	"testing"

	"github.com/taskq-dev/taskq/dlq"
	"github.com/taskq-dev/taskq/job"
	"github.com/taskq-dev/taskq/store"
)

func TestListAndRetry(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, store.EnqueueInput{ID: "j1", Command: "exit 1", MaxRetries: 1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := s.ClaimNext(ctx, "worker_1"); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := s.Fail(ctx, "j1", "boom", 2); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	svc := dlq.NewService(s)

	dead, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != "j1" {
		t.Fatalf("List = %+v, want exactly j1", dead)
	}

	if err := svc.Retry(ctx, "j1"); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	got, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending after Retry", got.State)
	}
}

func TestRetryRejectsNonDeadJob(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, store.EnqueueInput{ID: "j1", Command: "x"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	svc := dlq.NewService(s)
	if err := svc.Retry(ctx, "j1"); err == nil {
		t.Fatal("expected an error retrying a job that isn't dead")
	}
}
