package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules (seconds field first). A job
// never overlaps itself, whether started by its schedule or by RunNow.
type Scheduler struct {
	cron   *cron.Cron
	chain  cron.Chain
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	jobs    map[string]cron.Job
	stopped bool
}

func New() *Scheduler {
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLogger(logger)),
		chain:  cron.NewChain(cron.SkipIfStillRunning(logger)),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.Job),
	}
}

// Add registers job under name. Names must be unique.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}

	wrapped := s.chain.Then(cron.FuncJob(s.wrap(name, job)))
	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("schedule job %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = wrapped
	slog.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// RunNow starts the named job in the background, outside its schedule.
// Stop waits for runs started here; scheduled runs are awaited through cron.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("scheduler stopped, not running %s", name)
	}
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
	return nil
}

// Names lists registered jobs, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduled job panicked", "job", name, "panic", r, "stack", string(debug.Stack()))
				sentry.CurrentHub().Recover(r)
			}
		}()

		if s.ctx.Err() != nil {
			return
		}

		start := time.Now()
		slog.Info("job started", "job", name)
		if err := job(s.ctx); err != nil {
			slog.Error("job failed", "job", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
			sentry.CaptureException(err)
			return
		}
		slog.Info("job finished", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

// cronLogger sends cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
