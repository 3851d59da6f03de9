package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksp/warehouse/pkg/logger"
)

// Job is the work the scheduler runs once a day.
type Job func(ctx context.Context) error

// ExpiryScheduler runs a job every day at a fixed local time. It is owned
// by main: Start launches the loop and Stop cancels it and waits for it to
// return. A run that is missed while the process is down is not recovered.
type ExpiryScheduler struct {
	hour, minute int
	enabled      bool
	loc          *time.Location
	job          Job
	logger       *logger.Logger

	// now and after are replaced in tests.
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpiryScheduler creates a scheduler firing at hour:minute in loc.
func NewExpiryScheduler(hour, minute int, enabled bool, loc *time.Location, job Job, log *logger.Logger) *ExpiryScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpiryScheduler{
		hour:    hour,
		minute:  minute,
		enabled: enabled,
		loc:     loc,
		job:     job,
		logger:  log.WithComponent("expiry_scheduler"),
		now:     time.Now,
		after:   time.After,
	}
}

// Start launches the loop in a background goroutine. It does nothing when
// the scheduler is disabled or already running.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info().Msg("expiry scheduler disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info().Int("hour", s.hour).Int("minute", s.minute).Msg("expiry scheduler started")
}

// Stop cancels the loop and waits for it to exit. A job that is running
// sees its context cancelled.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("expiry scheduler stopped")
}

func (s *ExpiryScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := s.now().In(s.loc)
		next := NextRun(now, s.hour, s.minute)
		s.logger.Info().Time("next_run", next).Msg("next expiry notification scheduled")

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
		}

		run := s.logger.WithJob("expiry_notification", uuid.NewString())
		start := time.Now()
		if err := s.job(ctx); err != nil {
			run.Error().Err(err).Msg("expiry notification failed")
		} else {
			run.Info().Dur("duration", time.Since(start)).Msg("expiry notification completed")
		}
	}
}

// NextRun returns the first hour:minute in now's location strictly after
// now.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
