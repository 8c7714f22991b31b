// Package filelock implements the cross-process advisory lock that
// guards taskq's file-backed store against concurrent mutation by
// independent CLI invocations and worker processes. It never relies
// on flock(2)/LockFileEx, only on the atomicity of O_EXCL file
// creation, so it behaves identically on every platform the runner
// package supports.
package filelock

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/taskq-dev/taskq"
)

// StaleHorizon bounds how long a lock file may exist before its
// holder is presumed to have crashed without releasing it. Past this
// age the lock is evicted and its slot recreated. Pinned to the same
// 5-minute horizon as a stale job lock (store.StaleLockHorizon) per
// spec.md's data-layout section: both are taskq.StaleLockHorizon, so
// they can't drift apart. store/filelock can't import store directly
// (store imports store/filelock), hence the shared constant lives in
// the root package both already depend on.
const StaleHorizon = taskq.StaleLockHorizon

// AcquireTimeout is how long Acquire retries before giving up.
const AcquireTimeout = 5 * time.Second

const retryInterval = 10 * time.Millisecond

// Lock is a held advisory lock. Call Release when done.
type Lock struct {
	path string
	pid  int
}

// contents is the on-disk shape of a lock file, matching the schema
// in the data-layout section: pid of the holder and its acquisition
// time in milliseconds since the epoch.
type contents struct {
	PID       int   `json:"pid"`
	Timestamp int64 `json:"timestamp"`
}

// Acquire creates path exclusively, retrying every 10ms until it
// succeeds, a stale holder is evicted and retaken, the context is
// cancelled, or AcquireTimeout elapses (returning a
// *taskq.LockTimeoutError).
func Acquire(ctx context.Context, path string) (*Lock, error) {
	deadline := time.Now().Add(AcquireTimeout)
	pid := os.Getpid()

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			c := contents{PID: pid, Timestamp: time.Now().UnixMilli()}
			encErr := json.NewEncoder(f).Encode(c)
			closeErr := f.Close()
			if encErr != nil {
				os.Remove(path)
				return nil, &taskq.StoreIOError{Op: "filelock.acquire", Err: encErr}
			}
			if closeErr != nil {
				os.Remove(path)
				return nil, &taskq.StoreIOError{Op: "filelock.acquire", Err: closeErr}
			}
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, &taskq.StoreIOError{Op: "filelock.acquire", Err: err}
		}

		if evictIfStale(path) {
			continue
		}
		if time.Now().After(deadline) {
			return nil, &taskq.LockTimeoutError{Path: path}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// evictIfStale removes path if it holds a lock older than
// StaleHorizon, or if its contents can't be parsed at all (a torn
// write from a holder that crashed mid-acquire). Reports whether it
// removed anything.
func evictIfStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var c contents
	if err := json.Unmarshal(data, &c); err != nil {
		_ = os.Remove(path)
		return true
	}
	if time.Since(time.UnixMilli(c.Timestamp)) > StaleHorizon {
		_ = os.Remove(path)
		return true
	}
	return false
}

// Release removes the lock file, but only if it still belongs to this
// holder: if it was evicted as stale and retaken by another process
// in the meantime, Release leaves that process's lock alone.
func (l *Lock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &taskq.StoreIOError{Op: "filelock.release", Err: err}
	}
	var c contents
	if err := json.Unmarshal(data, &c); err == nil && c.PID != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return &taskq.StoreIOError{Op: "filelock.release", Err: err}
	}
	return nil
}
