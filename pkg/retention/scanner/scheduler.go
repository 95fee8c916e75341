package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/custodian/pkg/config"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context)

// SchedulerClient runs named jobs on cron schedules.
type SchedulerClient interface {
	// Schedule registers job under name. spec is a five-field cron expression.
	Schedule(name, spec string, job Job) error

	// Start begins running jobs until Stop is called or ctx is cancelled.
	Start(ctx context.Context)

	// Stop halts scheduling and waits for running jobs to finish.
	Stop()

	// NextRun returns the next activation of name, or nil if unknown.
	NextRun(name string) *time.Time
}

// CronScheduler is a SchedulerClient backed by robfig/cron. A job does not
// start again while its previous run is still going.
type CronScheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	logger  *slog.Logger
	running bool

	// stop is closed by Stop; watchDone is closed when the goroutine
	// watching the start context has returned.
	stop      chan struct{}
	watchDone chan struct{}
}

// NewCronScheduler creates an idle scheduler.
func NewCronScheduler() *CronScheduler {
	logger := slog.Default().With("component", "retention.scheduler")
	return &CronScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
		logger:  logger,
	}
}

// Schedule implements SchedulerClient.
func (s *CronScheduler) Schedule(name, spec string, job Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %q is already scheduled", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries[name] = id

	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

func (s *CronScheduler) run(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	s.logger.Debug("scheduled job started", "job", name)
	job(ctx)
	s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
}

// Start implements SchedulerClient.
func (s *CronScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx = ctx
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.entries))

	s.stop = make(chan struct{})
	s.watchDone = make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}(s.stop, s.watchDone)
}

// Stop implements SchedulerClient.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	// Running jobs read s.ctx under the lock, so wait outside it.
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *CronScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun implements SchedulerClient.
func (s *CronScheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	entry := s.cron.Entry(id)
	if entry.ID == 0 || entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// Job names used by Register.
const (
	ScanJob   = "retention-scan"
	NotifyJob = "retention-notify"
)

// Register schedules the scan and the notifier on client as configured.
// Disabled sections are left out.
func Register(client SchedulerClient, s *Scanner, scannerCfg *config.ScannerConfig, notifyCfg *config.NotificationsConfig) error {
	if scannerCfg != nil && scannerCfg.Enabled {
		err := client.Schedule(ScanJob, scannerCfg.Schedule, func(ctx context.Context) {
			s.ProcessRetentionActions(ctx, false)
		})
		if err != nil {
			return err
		}
	}

	if notifyCfg != nil && notifyCfg.Enabled {
		err := client.Schedule(NotifyJob, notifyCfg.Schedule, func(ctx context.Context) {
			if _, err := s.NotifyUpcoming(ctx); err != nil {
				s.logger.Error("scheduled notification run failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

var _ SchedulerClient = (*CronScheduler)(nil)
