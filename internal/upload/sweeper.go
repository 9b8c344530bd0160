package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically retires sessions older than a TTL. With a zero TTL sessions never
// expire and no job is scheduled.
type Sweeper struct {
	logger *slog.Logger
	store  Store
	ttl    time.Duration
	cron   *cron.Cron
	now    func() time.Time
}

// NewSweeper validates the cron schedule and prepares the sweep job.
func NewSweeper(log *slog.Logger, store Store, ttl time.Duration, schedule string) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Sweeper{
		logger: log.With(slog.String("component", "session_sweeper")),
		store:  store,
		ttl:    ttl,
		now:    time.Now,
	}
	if ttl <= 0 {
		return s, nil
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, fmt.Errorf("sweep schedule is required when ttl is set")
	}
	cl := cronLogger{log: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(schedule, func() { s.SweepOnce() }); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Enabled reports whether a sweep job is scheduled.
func (s *Sweeper) Enabled() bool {
	return s.cron != nil
}

// SweepOnce evicts sessions older than the TTL and returns how many were removed.
func (s *Sweeper) SweepOnce() int {
	if s.ttl <= 0 {
		return 0
	}
	removed := s.store.Sweep(s.now().Add(-s.ttl))
	if removed > 0 {
		s.logger.Info("expired sessions evicted", slog.Int("count", removed), slog.Duration("ttl", s.ttl))
	}
	return removed
}

func (s *Sweeper) Start() {
	if s.cron == nil {
		return
	}
	s.logger.Info("start", slog.Duration("ttl", s.ttl))
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
