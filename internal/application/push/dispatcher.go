package push

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one detached SendToUser call.
type Job struct {
	UserID  int64
	Title   string
	Body    string
	Data    map[string]string
	Options Options
}

// Dispatcher runs push jobs on a fixed worker pool behind a bounded queue so
// request handlers never wait on the push gateway.
type Dispatcher struct {
	svc        Service
	jobs       chan Job
	workers    int
	jobTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(svc Service, workers, queueSize int, jobTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		svc:        svc,
		jobs:       make(chan Job, queueSize),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the workers. Jobs run under ctx, each bounded by the job timeout.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.jobs {
				d.run(ctx, job)
			}
		}()
	}
}

// Submit enqueues job without blocking. It returns false when the queue is full
// or the dispatcher is stopped.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		slog.Warn("push: queue full, job dropped", "user_id", job.UserID)
		return false
	}
}

// Stop refuses new jobs, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if d.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, d.jobTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("push: job panicked", "user_id", job.UserID, "panic", r)
		}
	}()

	sent := d.svc.SendToUser(jobCtx, job.UserID, job.Title, job.Body, job.Data, job.Options)
	slog.Debug("push: job done", "user_id", job.UserID, "sent", sent)
}
