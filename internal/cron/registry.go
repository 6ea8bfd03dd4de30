package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Job is a unit of scheduled work executed by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

var errNilJob = errors.New("cron job is nil")

type schedule struct {
	job   Job
	every time.Duration
	next  time.Time
}

// Registry tracks jobs and when each is next due. A job registered with a
// non-positive cadence runs on every cycle.
type Registry struct {
	mu      sync.Mutex
	entries []*schedule
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds job with the given cadence. Job names must be unique because
// metrics and logs are keyed by name.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return errNilJob
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("cron job %q already registered", job.Name())
		}
	}
	r.entries = append(r.entries, &schedule{job: job, every: every})
	return nil
}

// MustRegister is Register for static wiring where a failure is a programming error.
func (r *Registry) MustRegister(job Job, every time.Duration) *Registry {
	if err := r.Register(job, every); err != nil {
		panic(err)
	}
	return r
}

// Due returns the jobs whose next run is at or before now, in registration order.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	due := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		if e.every <= 0 || !now.Before(e.next) {
			due = append(due, e.job)
		}
	}
	return due
}

// Completed pushes the named job's next run one cadence past ranAt.
func (r *Registry) Completed(name string, ranAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == name {
			e.next = ranAt.Add(e.every)
			return
		}
	}
}

// Names lists job names for startup logging.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.job.Name())
	}
	return names
}
