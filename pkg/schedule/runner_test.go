package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/schedule"
)

func TestRunnerAdd(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }

	t.Run("rejects incomplete tasks", func(t *testing.T) {
		t.Parallel()
		r := schedule.NewRunner()

		err := r.Add(schedule.Task{Schedule: schedule.Every(time.Second), Run: noop})
		require.ErrorIs(t, err, schedule.ErrInvalidTask)

		err = r.Add(schedule.Task{Name: "t", Run: noop})
		require.ErrorIs(t, err, schedule.ErrInvalidTask)

		err = r.Add(schedule.Task{Name: "t", Schedule: schedule.Every(time.Second)})
		require.ErrorIs(t, err, schedule.ErrInvalidTask)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		t.Parallel()
		r := schedule.NewRunner()

		task := schedule.Task{Name: "t", Schedule: schedule.Every(time.Second), Run: noop}
		require.NoError(t, r.Add(task))
		require.ErrorIs(t, r.Add(task), schedule.ErrTaskAlreadyRegistered)
	})
}

func TestRunnerStart(t *testing.T) {
	t.Parallel()

	t.Run("requires at least one task", func(t *testing.T) {
		t.Parallel()
		r := schedule.NewRunner()
		require.ErrorIs(t, r.Start(context.Background()), schedule.ErrNoTasks)
	})

	t.Run("runs due tasks repeatedly", func(t *testing.T) {
		t.Parallel()

		var runs atomic.Int32
		r := schedule.NewRunner(schedule.WithCheckInterval(10 * time.Millisecond))
		require.NoError(t, r.Add(schedule.Task{
			Name:     "counter",
			Schedule: schedule.Every(20 * time.Millisecond),
			Run: func(context.Context) error {
				runs.Add(1)
				return nil
			},
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		err := r.Start(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		assert.GreaterOrEqual(t, runs.Load(), int32(2))
	})

	t.Run("slow task does not overlap itself", func(t *testing.T) {
		t.Parallel()

		var concurrent, peak atomic.Int32
		r := schedule.NewRunner(schedule.WithCheckInterval(5 * time.Millisecond))
		require.NoError(t, r.Add(schedule.Task{
			Name:     "slow",
			Schedule: schedule.Every(5 * time.Millisecond),
			Run: func(context.Context) error {
				n := concurrent.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				time.Sleep(40 * time.Millisecond)
				concurrent.Add(-1)
				return nil
			},
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		_ = r.Start(ctx)

		assert.Equal(t, int32(1), peak.Load())
	})

	t.Run("panic in one task does not stop the runner", func(t *testing.T) {
		t.Parallel()

		var healthyRuns atomic.Int32
		r := schedule.NewRunner(schedule.WithCheckInterval(10 * time.Millisecond))
		require.NoError(t, r.Add(schedule.Task{
			Name:     "panicky",
			Schedule: schedule.Every(10 * time.Millisecond),
			Run: func(context.Context) error {
				panic("boom")
			},
		}))
		require.NoError(t, r.Add(schedule.Task{
			Name:     "healthy",
			Schedule: schedule.Every(10 * time.Millisecond),
			Run: func(context.Context) error {
				healthyRuns.Add(1)
				return nil
			},
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
		defer cancel()
		_ = r.Start(ctx)

		assert.GreaterOrEqual(t, healthyRuns.Load(), int32(2))
	})

	t.Run("failing task keeps its schedule", func(t *testing.T) {
		t.Parallel()

		var runs atomic.Int32
		r := schedule.NewRunner(schedule.WithCheckInterval(10 * time.Millisecond))
		require.NoError(t, r.Add(schedule.Task{
			Name:     "flaky",
			Schedule: schedule.Every(10 * time.Millisecond),
			Run: func(context.Context) error {
				runs.Add(1)
				return errors.New("transient")
			},
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = r.Start(ctx)

		assert.GreaterOrEqual(t, runs.Load(), int32(2))
	})
}
