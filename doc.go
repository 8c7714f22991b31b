// Package taskq provides a local, persistent background job queue.
//
// Jobs are shell commands. A durable [store.Store] holds them; one or
// more worker processes claim jobs, run them as subprocesses through
// [runner.Runner], and report success or failure back to the store.
// Failed jobs are retried with exponential backoff up to a per-job
// limit, then parked in the dead letter queue (DLQ) from which they
// may be revived.
//
// taskq is designed as a library: a thin CLI in cmd/taskq binds verbs
// to the packages here. Distributed, multi-machine operation is out
// of scope — the store serializes concurrent access from processes on
// a single host through an advisory file lock (store/filelock).
package taskq

import "time"

// StaleLockHorizon is the single horizon spec.md pins both kinds of
// stale-lock reclaim to: a job stuck in StateProcessing past this age
// is reclaimable by ClaimNext (store.StaleLockHorizon), and a .lock
// file past this age is evicted by a competing Acquire
// (filelock.StaleHorizon). Defined once here so the two packages
// can't drift apart, and since store/filelock is imported by store
// itself, store/filelock cannot import store to share it.
const StaleLockHorizon = 5 * time.Minute
