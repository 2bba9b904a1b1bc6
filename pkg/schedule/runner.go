package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgeops/stocksync/pkg/logger"
)

// Task is one periodic unit of work.
type Task struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Runner executes registered tasks in process on their schedules. A task
// still running when its next tick arrives is skipped for that tick; runs of
// one task never overlap.
type Runner struct {
	mu       sync.Mutex
	tasks    map[string]*runnerTask
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

type runnerTask struct {
	task     Task
	nextRun  time.Time
	inFlight bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCheckInterval sets how often due tasks are looked for.
func WithCheckInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRunnerLogger sets the logger for the Runner.
func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithRunnerClock overrides the time source. Used by tests.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a task runner. The default check interval is 30s.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		tasks:    make(map[string]*runnerTask),
		interval: 30 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add registers a periodic task. The first run happens at the schedule's
// next occurrence after registration.
func (r *Runner) Add(t Task) error {
	if t.Name == "" || t.Schedule == nil || t.Run == nil {
		return fmt.Errorf("%w: name, schedule, and run function are required", ErrInvalidTask)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, t.Name)
	}

	r.tasks[t.Name] = &runnerTask{
		task:    t,
		nextRun: t.Schedule.Next(r.now()),
	}

	r.logger.Info("registered periodic task",
		logger.Task(t.Name),
		slog.String("schedule", t.Schedule.String()))
	return nil
}

// Start ticks until the context is canceled, running due tasks. It returns
// after every in-flight task has finished.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	taskCount := len(r.tasks)
	r.mu.Unlock()

	if taskCount == 0 {
		return ErrNoTasks
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runDue(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler shutting down")
			r.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			r.runDue(ctx)
		}
	}
}

// runDue starts every task whose next run has arrived and is not already
// running.
func (r *Runner) runDue(ctx context.Context) {
	now := r.now()

	r.mu.Lock()
	var due []*runnerTask
	for _, rt := range r.tasks {
		if rt.inFlight || now.Before(rt.nextRun) {
			continue
		}
		rt.inFlight = true
		rt.nextRun = rt.task.Schedule.Next(now)
		due = append(due, rt)
	}
	r.mu.Unlock()

	for _, rt := range due {
		r.wg.Add(1)
		go r.runTask(ctx, rt)
	}
}

func (r *Runner) runTask(ctx context.Context, rt *runnerTask) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				logger.Task(rt.task.Name),
				slog.Any("panic", rec))
		}
		r.mu.Lock()
		rt.inFlight = false
		r.mu.Unlock()
	}()

	started := r.now()
	if err := rt.task.Run(ctx); err != nil {
		r.logger.ErrorContext(ctx, "task failed",
			logger.Task(rt.task.Name),
			logger.Error(err))
		return
	}

	r.logger.DebugContext(ctx, "task completed",
		logger.Task(rt.task.Name),
		slog.Duration("took", r.now().Sub(started)))
}
