package jobs

import (
	"sync"
)

// ReapFunc is called after the reaper removed an exited job.
type ReapFunc func(job Job)

// Reaper is the single goroutine that forwards process exits to a Tracker.
//
// Waiters call Notify from any goroutine once a background process exited;
// the reaper applies the removals one at a time.
type Reaper struct {
	tracker *Tracker
	onReap  ReapFunc

	exited chan int
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// OnReap sets a hook run for every job the reaper removes.
func OnReap(f ReapFunc) ReaperOption {
	return func(r *Reaper) {
		r.onReap = f
	}
}

// NewReaper starts a reaper for tracker.
func NewReaper(tracker *Tracker, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		tracker: tracker,
		exited:  make(chan int, tracker.Capacity()),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *Reaper) loop() {
	defer r.wg.Done()
	for {
		select {
		case pid := <-r.exited:
			job, ok := r.tracker.Reap(pid)
			if ok && r.onReap != nil {
				r.onReap(job)
			}
		case <-r.done:
			return
		}
	}
}

// Notify reports that the process pid exited. It is safe to call after
// Close, in which case the notification is dropped.
func (r *Reaper) Notify(pid int) {
	select {
	case r.exited <- pid:
	case <-r.done:
	}
}

// Close stops the reaper and waits for it to finish.
func (r *Reaper) Close() error {
	r.once.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
	return nil
}
