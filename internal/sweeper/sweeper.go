package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/avoronov/authkeeper-server/internal/logger"
)

// Job is a periodic cleanup task. Run reports how many records it removed.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Sweeper drives the registered cleanup jobs on their own tickers. Store
// sweeps are advisory: a failing job is logged and retried on the next tick,
// never escalated.
type Sweeper struct {
	logger *logger.Logger

	mu   sync.Mutex
	jobs []Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *logger.Logger) *Sweeper {
	return &Sweeper{logger: logger}
}

// Register adds a job. Must be called before Start.
func (s *Sweeper) Register(name string, interval time.Duration, run func(ctx context.Context) (int, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, Job{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per job. The goroutines stop when ctx is
// cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Sweeper: started", "jobs", len(jobs))
}

// Stop cancels the job goroutines and waits for them to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Sweeper: stopped")
}

// RunAll runs every registered job once and returns the first error.
func (s *Sweeper) RunAll(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	var firstErr error
	for _, job := range jobs {
		if err := s.runJob(ctx, job); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sweeper) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.runJob(ctx, job)
		}
	}
}

func (s *Sweeper) runJob(ctx context.Context, job Job) error {
	removed, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("Sweeper: job failed",
			"job", job.Name,
			"error", err.Error())
		return err
	}
	if removed > 0 {
		s.logger.Debug("Sweeper: job completed",
			"job", job.Name,
			"removed", removed)
	}
	return nil
}
