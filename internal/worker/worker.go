package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/jobs"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance in logs
	WorkerID string

	// PollInterval is how often due jobs are checked for
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs running at once
	MaxConcurrency int

	// ShutdownTimeout bounds the wait for in-flight jobs on shutdown
	ShutdownTimeout time.Duration
}

// Worker runs registered housekeeping jobs on their intervals
type Worker struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	jobs    []*scheduled
	started bool
}

type scheduled struct {
	job     jobs.Job
	next    time.Time
	running bool
}

// NewWorker creates a new background job worker
func NewWorker(config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{config: config, logger: logger, now: time.Now}
}

// Register adds a job. The first run happens on the first poll.
// Registering after Start is an error.
func (w *Worker) Register(job jobs.Job) error {
	if job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("job %q needs a run function and a positive interval", job.Type)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("job %q registered after worker start", job.Type)
	}
	w.jobs = append(w.jobs, &scheduled{job: job})
	return nil
}

// Start runs due jobs until the context is cancelled, then waits for in-flight
// jobs up to the shutdown timeout.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"jobs", len(w.jobs),
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.config.MaxConcurrency)
	var wg sync.WaitGroup

	w.dispatch(ctx, sem, &wg)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.drain(&wg)
			return ctx.Err()
		case <-ticker.C:
			w.dispatch(ctx, sem, &wg)
		}
	}
}

// dispatch starts every due job that is not already running, as far as the
// semaphore allows. Jobs that do not fit wait for the next poll.
func (w *Worker) dispatch(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.jobs {
		if s.running || now.Before(s.next) {
			continue
		}
		select {
		case sem <- struct{}{}:
		default:
			return
		}
		s.running = true
		wg.Add(1)
		go func(s *scheduled) {
			defer wg.Done()
			defer func() { <-sem }()
			w.process(ctx, s)
		}(s)
	}
}

func (w *Worker) process(ctx context.Context, s *scheduled) {
	timeout := s.job.Timeout
	if timeout <= 0 {
		timeout = s.job.Interval
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := w.now()
	err := w.run(jobCtx, s.job)

	w.mu.Lock()
	s.running = false
	s.next = started.Add(s.job.Interval)
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("job failed",
			"job_type", s.job.Type,
			"error", err,
		)
		return
	}
	w.logger.Debug("job completed",
		"job_type", s.job.Type,
		"duration", w.now().Sub(started),
	)
}

// run converts a panicking job into a failure so the loop survives it.
func (w *Worker) run(ctx context.Context, job jobs.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return job.Run(ctx)
}

func (w *Worker) drain(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker stopped with jobs still running", "worker_id", w.config.WorkerID)
	}
}
