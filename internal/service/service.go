package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"settlement-times/internal/dataset"
	"settlement-times/internal/engine"
	"settlement-times/internal/scheduler"
	"settlement-times/internal/storage"
)

// Service orchestrates dataset refreshes and snapshot publication.
type Service struct {
	scheduler *scheduler.Scheduler
	source    dataset.Source
	loader    *dataset.Loader
	holder    *engine.Holder
	auditor   storage.RefreshAuditor
	locker    storage.AdvisoryLocker
	lockKey   int64
	logger    zerolog.Logger
}

// New constructs the refresh service.
func New(sched *scheduler.Scheduler, source dataset.Source, loader *dataset.Loader, holder *engine.Holder, auditor storage.RefreshAuditor, locker storage.AdvisoryLocker, lockKey int64, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		source:    source,
		loader:    loader,
		holder:    holder,
		auditor:   auditor,
		locker:    locker,
		lockKey:   lockKey,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the aligned refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle 执行一次数据集刷新周期。
func (s *Service) ProcessCycle(ctx context.Context, cycle time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycle).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.Refresh(ctx)
}

// Refresh fetches the dataset, validates it, and atomically publishes a new
// snapshot. A rejected dataset leaves the previous snapshot serving.
func (s *Service) Refresh(ctx context.Context) error {
	started := time.Now().UTC()

	payload, err := s.source.Fetch(ctx)
	if err != nil {
		return s.fail(ctx, "", started, fmt.Errorf("fetch dataset: %w", err))
	}

	snap, err := s.loader.Build(payload)
	if err != nil {
		return s.fail(ctx, payload.Version, started, err)
	}

	if current, currErr := s.holder.Current(); currErr == nil && current.Version() == snap.Version() {
		s.logger.Debug().Str("version", snap.Version()).Msg("dataset version unchanged; snapshot kept")
		return nil
	}

	s.holder.Swap(snap)
	s.logger.Info().
		Str("version", snap.Version()).
		Time("last_updated", snap.LastUpdated()).
		Int("route_asset_entries", snap.RouteAssetCount()).
		Msg("snapshot published")

	s.audit(ctx, storage.RefreshRecord{
		Version:    snap.Version(),
		Status:     "published",
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Service) fail(ctx context.Context, version string, started time.Time, err error) error {
	s.logger.Error().Err(err).Msg("dataset refresh rejected; previous snapshot remains current")
	msg := err.Error()
	s.audit(ctx, storage.RefreshRecord{
		Version:    version,
		Status:     "failed",
		Error:      &msg,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	return err
}

func (s *Service) audit(ctx context.Context, rec storage.RefreshRecord) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.RecordRefresh(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist refresh record")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
