package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/taskq-dev/taskq"
	"github.com/taskq-dev/taskq/job"
	"github.com/taskq-dev/taskq/store/filelock"
)

// File is the durable, cross-process Store: the job collection lives
// in a single jobs.json file in dir, and every mutation is performed
// under a filelock.Lock held on .lock, read-modify-rewrite, with the
// rewrite landing via write-to-temp-then-rename so a reader (or a
// crash) never observes a half-written file.
type File struct {
	dir      string
	dataPath string
	lockPath string
}

// NewFile returns a File store rooted at dir, which must already
// exist. jobs.json is created lazily by the first mutating call
// (Enqueue, ClaimNext, ...).
func NewFile(dir string) *File {
	return &File{
		dir:      dir,
		dataPath: filepath.Join(dir, "jobs.json"),
		lockPath: filepath.Join(dir, ".lock"),
	}
}

// mutate acquires the lock, loads the collection, applies fn, and
// persists the result atomically. fn's error is returned unwrapped
// and nothing is written.
func (f *File) mutate(ctx context.Context, fn func(jobs map[string]*job.Job) (*job.Job, error)) (*job.Job, error) {
	lock, err := filelock.Acquire(ctx, f.lockPath)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	jobs, err := f.read()
	if err != nil {
		return nil, err
	}

	result, err := fn(jobs)
	if err != nil {
		return nil, err
	}

	if err := f.write(jobs); err != nil {
		return nil, err
	}
	return result, nil
}

func (f *File) read() (map[string]*job.Job, error) {
	data, err := os.ReadFile(f.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*job.Job), nil
		}
		return nil, &taskq.StoreIOError{Op: "file.read", Err: err}
	}
	if len(data) == 0 {
		return make(map[string]*job.Job), nil
	}
	var list []*job.Job
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &taskq.StoreIOError{Op: "file.read", Err: err}
	}
	jobs := make(map[string]*job.Job, len(list))
	for _, j := range list {
		jobs[j.ID] = j
	}
	return jobs, nil
}

func (f *File) write(jobs map[string]*job.Job) error {
	list := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		list = append(list, j)
	}
	sort.Slice(list, func(i, k int) bool { return list[i].CreatedAt.Before(list[k].CreatedAt) })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return &taskq.StoreIOError{Op: "file.write", Err: err}
	}

	tmp, err := os.CreateTemp(f.dir, "jobs-*.json.tmp")
	if err != nil {
		return &taskq.StoreIOError{Op: "file.write", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &taskq.StoreIOError{Op: "file.write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &taskq.StoreIOError{Op: "file.write", Err: err}
	}
	if err := os.Rename(tmpPath, f.dataPath); err != nil {
		return &taskq.StoreIOError{Op: "file.write", Err: err}
	}
	return nil
}

func (f *File) Enqueue(ctx context.Context, in EnqueueInput) (*job.Job, error) {
	return f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		return enqueue(jobs, in, time.Now())
	})
}

func (f *File) ClaimNext(ctx context.Context, workerID string) (*job.Job, error) {
	return f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		j := claimNext(jobs, workerID, time.Now())
		return j, nil
	})
}

func (f *File) Complete(ctx context.Context, jobID string) error {
	_, err := f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		return complete(jobs, jobID, time.Now())
	})
	return err
}

func (f *File) Fail(ctx context.Context, jobID, errMsg string, backoffBase float64) error {
	_, err := f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		return fail(jobs, jobID, errMsg, backoffBase, time.Now())
	})
	return err
}

func (f *File) Cancel(ctx context.Context, jobID string) error {
	_, err := f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		return cancel(jobs, jobID, time.Now())
	})
	return err
}

func (f *File) RetryFromDLQ(ctx context.Context, jobID string) error {
	_, err := f.mutate(ctx, func(jobs map[string]*job.Job) (*job.Job, error) {
		return retryFromDLQ(jobs, jobID, time.Now())
	})
	return err
}

// Get, List, ListDLQ, Status, and Metrics read jobs.json directly
// without taking the lock: the write side's rename is atomic, so a
// concurrent reader always observes either the prior or the next
// complete collection, never a partial one.
func (f *File) Get(_ context.Context, jobID string) (*job.Job, error) {
	jobs, err := f.read()
	if err != nil {
		return nil, err
	}
	j, ok := jobs[jobID]
	if !ok {
		return nil, &taskq.NotFoundError{JobID: jobID}
	}
	return j.Clone(), nil
}

func (f *File) List(_ context.Context, state job.State) ([]*job.Job, error) {
	jobs, err := f.read()
	if err != nil {
		return nil, err
	}
	return list(jobs, state), nil
}

func (f *File) ListDLQ(_ context.Context) ([]*job.Job, error) {
	jobs, err := f.read()
	if err != nil {
		return nil, err
	}
	return listDLQ(jobs), nil
}

func (f *File) Status(_ context.Context) (StatusCounts, error) {
	jobs, err := f.read()
	if err != nil {
		return nil, err
	}
	return status(jobs), nil
}

func (f *File) Metrics(_ context.Context) (Metrics, error) {
	jobs, err := f.read()
	if err != nil {
		return Metrics{}, err
	}
	return computeMetrics(jobs), nil
}

var _ Store = (*File)(nil)
