package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskq-dev/taskq"
	"github.com/taskq-dev/taskq/backoff"
	"github.com/taskq-dev/taskq/id"
	"github.com/taskq-dev/taskq/job"
)

// The functions in this file are the single source of transition
// logic shared by Memory and File: both hold the full job collection
// as a map[string]*job.Job for the duration of one transaction (File
// reconstructs it from jobs.json, mutates it, and serializes it back;
// Memory just keeps it resident under a mutex) and delegate every
// mutation here. Keeping the rules in one place means the two storage
// backends can never drift on dispatch order, retry math, or
// preconditions.

func enqueue(jobs map[string]*job.Job, in EnqueueInput, now time.Time) (*job.Job, error) {
	if strings.TrimSpace(in.Command) == "" {
		return nil, &taskq.ValidationError{Msg: "command must not be empty"}
	}
	if in.Priority != 0 && (in.Priority < job.MinPriority || in.Priority > job.MaxPriority) {
		return nil, &taskq.ValidationError{Msg: fmt.Sprintf("priority must be between %d and %d", job.MinPriority, job.MaxPriority)}
	}
	if in.MaxRetries < 0 {
		return nil, &taskq.ValidationError{Msg: "max_retries must not be negative"}
	}
	if in.TimeoutMS < 0 {
		return nil, &taskq.ValidationError{Msg: "timeout_ms must not be negative"}
	}

	jobID := in.ID
	if jobID == "" {
		jobID = id.Generate()
	} else if _, exists := jobs[jobID]; exists {
		return nil, &taskq.ValidationError{Msg: fmt.Sprintf("job id %q already exists", jobID)}
	}

	priority := in.Priority
	if priority == 0 {
		priority = job.DefaultPriority
	}
	maxRetries := in.MaxRetries
	if maxRetries == 0 {
		maxRetries = job.DefaultMaxRetries
	}
	timeoutMS := in.TimeoutMS
	if timeoutMS == 0 {
		timeoutMS = job.DefaultTimeoutMS
	}

	j := &job.Job{
		ID:         jobID,
		Command:    in.Command,
		State:      job.StatePending,
		Priority:   priority,
		Attempts:   0,
		MaxRetries: maxRetries,
		TimeoutMS:  timeoutMS,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	jobs[jobID] = j
	return j.Clone(), nil
}

// claimEligible returns every job currently runnable, in dispatch
// order: priority ascending (1 highest), ties broken by created_at
// ascending (oldest first).
func claimEligible(jobs map[string]*job.Job, now time.Time) []*job.Job {
	var elig []*job.Job
	for _, j := range jobs {
		switch {
		case j.State == job.StatePending:
			elig = append(elig, j)
		case j.State == job.StateFailed && j.NextRetryAt != nil && !j.NextRetryAt.After(now):
			elig = append(elig, j)
		case j.State == job.StateProcessing && j.LockedAt != nil && now.Sub(*j.LockedAt) > StaleLockHorizon:
			elig = append(elig, j)
		}
	}
	sort.Slice(elig, func(i, k int) bool {
		if elig[i].Priority != elig[k].Priority {
			return elig[i].Priority < elig[k].Priority
		}
		return elig[i].CreatedAt.Before(elig[k].CreatedAt)
	})
	return elig
}

// claimNext picks the highest-priority eligible job and assigns it to
// workerID. A stale-lock reclaim does not increment Attempts: the
// previous holder never reported a result, so this is not a retry.
func claimNext(jobs map[string]*job.Job, workerID string, now time.Time) *job.Job {
	elig := claimEligible(jobs, now)
	if len(elig) == 0 {
		return nil
	}
	j := elig[0]
	j.State = job.StateProcessing
	j.LockedBy = workerID
	t := now
	j.LockedAt = &t
	j.UpdatedAt = now
	return j
}

func complete(jobs map[string]*job.Job, jobID string, now time.Time) (*job.Job, error) {
	j, ok := jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	if j.State != job.StateProcessing {
		return nil, &taskq.PreconditionError{JobID: jobID, Msg: fmt.Sprintf("cannot complete a job in state %q", j.State)}
	}
	j.State = job.StateCompleted
	j.LockedBy = ""
	j.LockedAt = nil
	j.UpdatedAt = now
	return j, nil
}

func fail(jobs map[string]*job.Job, jobID, errMsg string, backoffBase float64, now time.Time) (*job.Job, error) {
	j, ok := jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	if j.State != job.StateProcessing {
		return nil, &taskq.PreconditionError{JobID: jobID, Msg: fmt.Sprintf("cannot fail a job in state %q", j.State)}
	}

	j.Attempts++
	e := errMsg
	j.Error = &e
	j.LockedBy = ""
	j.LockedAt = nil
	j.UpdatedAt = now

	if j.Attempts >= j.MaxRetries {
		j.State = job.StateDead
		j.NextRetryAt = nil
		return j, nil
	}

	j.State = job.StateFailed
	delay := backoff.Pow(backoffBase).Delay(j.Attempts)
	t := now.Add(delay)
	j.NextRetryAt = &t
	return j, nil
}

func cancel(jobs map[string]*job.Job, jobID string, now time.Time) (*job.Job, error) {
	j, ok := jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	switch j.State {
	case job.StatePending, job.StateFailed, job.StateDead:
		j.State = job.StateCancelled
		j.LockedBy = ""
		j.LockedAt = nil
		j.NextRetryAt = nil
		j.UpdatedAt = now
		return j, nil
	default:
		return nil, &taskq.PreconditionError{JobID: jobID, Msg: fmt.Sprintf("cannot cancel a job in state %q", j.State)}
	}
}

func retryFromDLQ(jobs map[string]*job.Job, jobID string, now time.Time) (*job.Job, error) {
	j, ok := jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	if j.State != job.StateDead {
		return nil, &taskq.PreconditionError{JobID: jobID, Msg: "job is not in the dead letter queue"}
	}
	j.State = job.StatePending
	j.Attempts = 0
	j.Error = nil
	j.NextRetryAt = nil
	j.LockedBy = ""
	j.LockedAt = nil
	j.UpdatedAt = now
	return j, nil
}

func list(jobs map[string]*job.Job, state job.State) []*job.Job {
	var out []*job.Job
	for _, j := range jobs {
		if state != "" && j.State != state {
			continue
		}
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

func listDLQ(jobs map[string]*job.Job) []*job.Job {
	var out []*job.Job
	for _, j := range jobs {
		if j.State != job.StateDead {
			continue
		}
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UpdatedAt.After(out[k].UpdatedAt) })
	return out
}

func status(jobs map[string]*job.Job) StatusCounts {
	counts := StatusCounts{}
	for _, j := range jobs {
		counts[j.State]++
	}
	return counts
}

func computeMetrics(jobs map[string]*job.Job) Metrics {
	m := Metrics{}
	var latencySum time.Duration
	for _, j := range jobs {
		m.Total++
		if j.State == job.StateCompleted {
			m.Completed++
			latencySum += j.UpdatedAt.Sub(j.CreatedAt)
		}
	}
	if m.Total == 0 {
		return m
	}
	m.SuccessRate = float64(m.Completed) / float64(m.Total)
	if m.Completed > 0 {
		m.AvgCompletionLatency = latencySum / time.Duration(m.Completed)
	}
	return m
}
