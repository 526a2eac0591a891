// Package scheduler runs the announcement sweep on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/service"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 5 * time.Minute

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Sweeper runs one pass over every active channel.
type Sweeper interface {
	Sweep(ctx context.Context) *service.SweepReport
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State     State                `json:"state"`
	Interval  string               `json:"interval"`
	InFlight  bool                 `json:"in_flight"`
	Sweeps    int                  `json:"sweeps"`
	NextRun   *time.Time           `json:"next_run,omitempty"`
	LastSweep *service.SweepReport `json:"last_sweep,omitempty"`
}

// Scheduler fires a sweep on Start and then every interval. At most one
// sweep runs at a time; a tick that finds one in flight is skipped.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	cron     *cron.Cron
	runCtx   context.Context
	cancel   context.CancelFunc
	inFlight bool
	sweeps   int
	last     *service.SweepReport
	wg       sync.WaitGroup
}

// New creates a stopped Scheduler.
func New(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		state:    StateStopped,
	}
}

// Start fires an immediate sweep and arms the interval timer. Sweeps keep
// ctx's values but are only cancelled by a Stop that runs out of time.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		return ErrAlreadyRunning
	}

	// Jobs only hand the sweep to run, which recovers its own panics.
	s.cron = cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(s.logger.Named("cron")))))
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.launch("interval")
	}))

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.state = StateRunning
	s.cron.Start()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	s.launchLocked("start")
	return nil
}

// Stop disarms the timer and waits for the in-flight sweep to finish. If ctx
// ends first the sweep is cancelled, which takes effect between items, and
// Stop still waits for it before returning ctx's error.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = StateStopping
	cronDone := s.cron.Stop()
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("scheduler stopping")

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("in-flight sweep did not finish in time, cancelling it")
		err = ctx.Err()
		cancel()
		<-done
	}
	cancel()

	s.mu.Lock()
	s.state = StateStopped
	s.cron = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
	return err
}

// TriggerNow starts a sweep outside the interval. It reports false when a
// sweep is already in flight.
func (s *Scheduler) TriggerNow() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return false, ErrNotRunning
	}
	return s.launchLocked("manual"), nil
}

// Status returns the current state and the last finished sweep.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Interval:  s.interval.String(),
		InFlight:  s.inFlight,
		Sweeps:    s.sweeps,
		LastSweep: s.last,
	}
	if s.cron != nil {
		if entries := s.cron.Entries(); len(entries) > 0 && !entries[0].Next.IsZero() {
			next := entries[0].Next
			st.NextRun = &next
		}
	}
	return st
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) launch(trigger string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launchLocked(trigger)
}

func (s *Scheduler) launchLocked(trigger string) bool {
	if s.state != StateRunning {
		return false
	}
	if s.inFlight {
		s.logger.Info("sweep already in flight, skipping", zap.String("trigger", trigger))
		return false
	}

	s.inFlight = true
	ctx := s.runCtx
	s.wg.Go(func() {
		s.run(ctx, trigger)
	})
	return true
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	var report *service.SweepReport
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked", zap.String("trigger", trigger), zap.Any("panic", r))
			report = &service.SweepReport{Error: fmt.Sprintf("panic: %v", r)}
		}

		s.mu.Lock()
		s.inFlight = false
		s.sweeps++
		s.last = report
		s.mu.Unlock()
	}()

	s.logger.Debug("sweep starting", zap.String("trigger", trigger))
	report = s.sweeper.Sweep(ctx)
}
