package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"debtster-collection/internal/service"

	"github.com/robfig/cron/v3"
)

// Runner is the work done on every tick.
type Runner interface {
	RunAll(ctx context.Context, tenantID *string) (service.CycleReport, error)
}

// Scheduler runs a full collection cycle for all tenants on a cron schedule.
// The first run happens right after Start. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	Runner  Runner
	Spec    string
	Enabled bool

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func New(runner Runner, spec string, enabled bool) *Scheduler {
	if spec == "" {
		spec = "@every 1h"
	}
	return &Scheduler{Runner: runner, Spec: spec, Enabled: enabled}
}

// Start registers the cycle under Spec and starts the cron runner. It fails
// when Spec cannot be parsed.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[SCHEDULER] disabled, not starting")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	id, err := c.AddFunc(s.Spec, func() { s.tick(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("invalid cycle schedule %q: %w", s.Spec, err)
	}

	// the immediate run goes through the same chain so a slow first run
	// also makes the following ticks skip
	first := c.Entry(id).WrappedJob
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		first.Run()
	}()

	c.Start()
	s.cron = c
	s.cancel = cancel

	log.Printf("[SCHEDULER] started, schedule %q", s.Spec)
	return nil
}

// Stop halts the cron runner and waits for a cycle in flight to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.cron = nil
	log.Println("[SCHEDULER] stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.Runner.RunAll(ctx, nil)
	switch {
	case errors.Is(err, service.ErrCycleBusy):
		log.Println("[SCHEDULER] previous run still in progress, tick skipped")
	case err != nil:
		log.Printf("[SCHEDULER] run %s failed: %v", report.RunID, err)
	default:
		log.Printf("[SCHEDULER] run %s completed", report.RunID)
	}
}

// RunNow triggers one cycle outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.tick(ctx)
}
