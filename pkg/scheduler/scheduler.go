package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bookhub/backend/internal/constants"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Locker is a lock shared by every instance of the service.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type JobFunc func(ctx context.Context) error

type job struct {
	name string
	fn   JobFunc
	mu   sync.Mutex
}

// Scheduler runs named jobs on cron specs. A job never overlaps itself:
// in-process through a per-job mutex, across instances through Locker
// when one is configured.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	lockTTL time.Duration

	mu   sync.Mutex
	jobs map[string]*job
}

func New(locker Locker, lockTTL time.Duration) *Scheduler {
	cl := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker:  locker,
		lockTTL: lockTTL,
		jobs:    make(map[string]*job),
	}
}

// Add registers fn under name with a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}

	j := &job{name: name, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.run(context.Background(), j) }); err != nil {
		return fmt.Errorf("scheduler: invalid spec %q for %s: %w", spec, name, err)
	}
	s.jobs[name] = j
	return nil
}

// Run executes the named job once, outside its schedule. It reports false
// when the job was skipped because another run holds its lock.
func (s *Scheduler) Run(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("scheduler: unknown job %q", name)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) run(ctx context.Context, j *job) (bool, error) {
	ctx = ctxutil.WithFunction(ctx, "scheduler", j.name)

	if !j.mu.TryLock() {
		logger.InfoWithContext(ctx, "Job still running, skipping").Log()
		return false, nil
	}
	defer j.mu.Unlock()

	if s.locker != nil {
		key := constants.KeyJobLock + j.name
		token, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			logger.ErrorWithContext(ctx, "Failed to acquire job lock").
				Err(err).
				Log()
			return false, err
		}
		if token == "" {
			logger.InfoWithContext(ctx, "Job running on another instance, skipping").Log()
			return false, nil
		}
		defer func() {
			if err := s.locker.Unlock(context.Background(), key, token); err != nil {
				logger.WarnWithContext(ctx, "Failed to release job lock").
					Err(err).
					Log()
			}
		}()
	}

	start := time.Now()
	err := j.fn(ctx)
	if err != nil {
		logger.ErrorWithContext(ctx, "Job failed").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return true, err
	}

	logger.InfoWithContext(ctx, "Job finished").
		Duration(time.Since(start)).
		Log()
	return true, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.GetLogger().Warn("Scheduler stop timed out with jobs still running")
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.GetSugarLogger().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.GetSugarLogger().Errorw(msg, append(keysAndValues, "error", err)...)
}
