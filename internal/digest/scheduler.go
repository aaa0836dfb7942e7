package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/metrics"
)

// Runner is what the scheduler fires on every tick.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler fires the digest on the cron expression of the live settings and
// re-registers it whenever the settings file changes.
type Scheduler struct {
	job     Runner
	manager *config.Manager
	cron    *cron.Cron
	log     *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	entryID cron.EntryID
	spec    string
}

func NewScheduler(job Runner, manager *config.Manager, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		job:     job,
		manager: manager,
		log:     log,
		ctx:     context.Background(),
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Start blocks until ctx is done, then waits for a running digest to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.manager.Watch(ctx, func(settings config.DigestSettings) {
		if err := s.Apply(settings); err != nil {
			s.log.Warnw("reschedule failed", "error", err)
		}
	}); err != nil {
		s.log.Warnw("settings watch unavailable, schedule is fixed", "path", s.manager.Path(), "error", err)
	}
	if err := s.Apply(s.manager.Get()); err != nil {
		return err
	}

	s.cron.Start()
	<-ctx.Done()
	s.log.Infow("stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// Apply replaces the registered entry with one for settings.
func (s *Scheduler) Apply(settings config.DigestSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
		s.spec = ""
	}
	if !settings.Enabled {
		s.log.Infow("digest disabled")
		return nil
	}

	spec := CronSpec(settings)
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", spec, err)
	}
	s.entryID = id
	s.spec = spec
	s.log.Infow("digest scheduled", "spec", spec)
	return nil
}

// Spec is the currently registered cron spec, empty when disabled.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	report, err := s.job.Run(ctx)
	metrics.RecordDigestRun()
	if err != nil {
		s.log.Errorw("digest run failed", "error", err)
		return
	}
	s.log.Infow("digest run finished", "date", report.Date, "skipped", report.Skipped, "sent", report.Sent, "failed", report.Failed)
}

// CronSpec prefixes the expression with its timezone.
func CronSpec(settings config.DigestSettings) string {
	tz := strings.TrimSpace(settings.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return settings.Cron
	}
	return "CRON_TZ=" + tz + " " + settings.Cron
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
