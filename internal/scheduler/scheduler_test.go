package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"debtster-collection/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	err      error
	block    chan struct{}
}

func (r *countingRunner) RunAll(ctx context.Context, tenantID *string) (service.CycleReport, error) {
	r.calls.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return service.CycleReport{RunID: "run"}, r.err
}

func TestScheduler_RunsImmediatelyAndOnSchedule(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, "@every 1s", true)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 500*time.Millisecond, 5*time.Millisecond, "first run right after Start")
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()

	after := runner.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load(), "no runs after Stop")
}

func TestScheduler_SlowRunSkipsOverlappingTicks(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(runner, "@every 1s", true)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(2500 * time.Millisecond)

	assert.Equal(t, int32(1), runner.calls.Load(), "ticks during a run are skipped")
	assert.Equal(t, int32(1), runner.maxSeen.Load())

	close(runner.block)
	s.Stop()
}

func TestScheduler_StopCancelsRunInFlight(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(runner, "@every 1h", true)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runner.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a run was in flight")
	}
	assert.Equal(t, int32(0), runner.inFlight.Load())
}

func TestScheduler_Disabled(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, "@every 1s", false)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, "every tuesday-ish", true)

	assert.Error(t, s.Start(context.Background()))
	s.Stop()
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestScheduler_BusyIsNotFatal(t *testing.T) {
	runner := &countingRunner{err: service.ErrCycleBusy}
	s := New(runner, "@every 1s", true)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()
}

func TestScheduler_DefaultsAndRunNow(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, "", true)
	assert.Equal(t, "@every 1h", s.Spec)

	s.Stop()
	s.RunNow(context.Background())
	assert.Equal(t, int32(1), runner.calls.Load())
}
