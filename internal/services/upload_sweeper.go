package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskforge/backend/internal/infrastructure/blob"
	"github.com/taskforge/backend/repository"
)

// SweeperConfig controls how often orphaned uploads are collected and how
// long an unreferenced blob may linger before removal. The grace period
// covers uploads whose registration is still in flight.
type SweeperConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// UploadSweeper periodically deletes profile-image blobs that no user record
// references anymore (replaced images, abandoned registrations).
type UploadSweeper struct {
	store  *blob.Store
	users  repository.UserRepository
	logger *zap.Logger
	cron   *cron.Cron
	cfg    SweeperConfig
}

func NewUploadSweeper(store *blob.Store, users repository.UserRepository, logger *zap.Logger, cfg SweeperConfig) *UploadSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sw := &UploadSweeper{
		store:  store,
		users:  users,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = sw.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := sw.Sweep(ctx); err != nil {
			sw.logger.Error("upload sweep failed", zap.Error(err))
		}
	})

	return sw
}

// Start launches the cron scheduler.
func (sw *UploadSweeper) Start() {
	if sw == nil || sw.cron == nil {
		return
	}
	sw.cron.Start()
	sw.logger.Info("upload sweeper started")
}

// Stop gracefully stops the scheduler.
func (sw *UploadSweeper) Stop(ctx context.Context) {
	if sw == nil || sw.cron == nil {
		return
	}
	stopCtx := sw.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	sw.logger.Info("upload sweeper stopped")
}

// Sweep removes every blob older than the retention window that no user's
// profile references.
func (sw *UploadSweeper) Sweep(ctx context.Context) error {
	if sw == nil || sw.store == nil {
		return nil
	}

	refs, err := sw.users.ListImageRefs(ctx)
	if err != nil {
		return err
	}

	inUse := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if id := blob.IDFromRef(ref); id != "" {
			inUse[id] = true
		}
	}

	removed, err := sw.store.Sweep(time.Now().Add(-sw.cfg.Retention), inUse)
	if err != nil {
		return err
	}
	if removed > 0 {
		sw.logger.Info("orphaned uploads removed", zap.Int("count", removed))
	}
	return nil
}
