package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRegisterTask(t *testing.T) {
	s := newScheduler(t)

	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "poll", Name: "Sensor poll", Interval: time.Minute, Func: noop}))

	err := s.RegisterTask(TaskConfig{ID: "poll", Name: "Sensor poll", Interval: time.Minute, Func: noop})
	assert.ErrorContains(t, err, "already registered")

	err = s.RegisterTask(TaskConfig{ID: "bad", Interval: 0, Func: noop})
	assert.ErrorContains(t, err, "positive interval")

	tasks := s.ListTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "poll", tasks[0].ID)
	assert.Equal(t, time.Minute, tasks[0].Interval)
	assert.Nil(t, tasks[0].LastRun)
}

func TestRunNow(t *testing.T) {
	s := newScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "poll",
		Name:     "Sensor poll",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.RunNow("poll"))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		info, err := s.GetTask("poll")
		return err == nil && info.LastRun != nil && !info.Running
	}, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
	_, err := s.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRunOnStart(t *testing.T) {
	s := newScheduler(t)

	done := make(chan struct{})
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "poll",
		Interval:   time.Hour,
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			close(done)
			return errors.New("seerr unavailable")
		},
	}))

	s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run on start")
	}
}

func TestStopCancelsRunningTask(t *testing.T) {
	s, err := New(zerolog.Nop())
	require.NoError(t, err)

	started := make(chan struct{})
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "poll",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	s.Start()
	require.NoError(t, s.RunNow("poll"))
	<-started

	require.NoError(t, s.Stop())
	info, err := s.GetTask("poll")
	require.NoError(t, err)
	assert.False(t, info.Running)
}
