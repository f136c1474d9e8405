package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Archiver is the part of the task usecase the sweep needs.
type Archiver interface {
	ArchiveCompleted(ctx context.Context, ownerID string, now time.Time) (int64, error)
}

// ArchiveScheduler periodically moves long-finished cards of every owner into the
// archive.
type ArchiveScheduler struct {
	archiver Archiver
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewArchiveScheduler creates a new scheduler
func NewArchiveScheduler(archiver Archiver, interval time.Duration) *ArchiveScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ArchiveScheduler{
		archiver: archiver,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		interval: interval,
		timeout:  time.Minute,
		now:      time.Now,
	}
}

// Start runs one sweep right away and then every interval.
func (s *ArchiveScheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() { s.Sweep() }); err != nil {
		return fmt.Errorf("schedule archive sweep: %w", err)
	}

	zap.L().Info("[TaskScheduler] Starting archive sweep", zap.Duration("interval", s.interval))
	go s.Sweep()
	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *ArchiveScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("[TaskScheduler] Scheduler stopped")
}

// Sweep archives completed cards across all owners once.
func (s *ArchiveScheduler) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.archiver.ArchiveCompleted(ctx, "", s.now())
	if err != nil {
		zap.L().Error("[TaskScheduler] Archive sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		zap.L().Info("[TaskScheduler] Archived completed tasks", zap.Int64("count", n))
	}
	return n
}
