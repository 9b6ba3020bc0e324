// Package jobs keeps track of pipelines running in the background.
package jobs

import (
	"sync"
)

// DefaultCapacity is the number of background jobs tracked at once.
const DefaultCapacity = 10

// Job is a background pipeline identified by the pid of its last process.
type Job struct {
	PID     int
	Command string
}

// Tracker is a fixed-capacity list of background jobs in launch order.
//
// Reap is called from the reaper goroutine while the read loop may be adding
// or listing jobs, so every method takes the lock.
type Tracker struct {
	mu       sync.Mutex
	jobs     []Job
	capacity int
}

// NewTracker creates a tracker holding up to capacity jobs.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		jobs:     make([]Job, 0, capacity),
		capacity: capacity,
	}
}

// Add starts tracking a job. It returns false if the tracker is full; the
// process keeps running but won't be listed.
func (t *Tracker) Add(pid int, command string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.jobs) >= t.capacity {
		return false
	}
	t.jobs = append(t.jobs, Job{PID: pid, Command: command})
	return true
}

// Reap removes the job with the given pid, keeping the order of the others.
func (t *Tracker) Reap(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, job := range t.jobs {
		if job.PID != pid {
			continue
		}
		copy(t.jobs[i:], t.jobs[i+1:])
		t.jobs[len(t.jobs)-1] = Job{}
		t.jobs = t.jobs[:len(t.jobs)-1]
		return job, true
	}
	return Job{}, false
}

// List returns a snapshot of the tracked jobs. Jobs finishing while the
// caller looks at the snapshot are not reflected in it.
func (t *Tracker) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Commands returns the command text of each tracked job.
func (t *Tracker) Commands() []string {
	jobs := t.List()
	out := make([]string, len(jobs))
	for i, job := range jobs {
		out[i] = job.Command
	}
	return out
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Capacity returns the maximum number of tracked jobs.
func (t *Tracker) Capacity() int {
	return t.capacity
}

// DrainAll forgets every job without waiting for it and returns what was
// tracked. The processes keep running.
func (t *Tracker) DrainAll() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.jobs
	t.jobs = make([]Job, 0, t.capacity)
	return out
}
