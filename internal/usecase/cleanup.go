package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/metrics"
)

// DefaultPurgeRetention is how long soft-deleted relationship rows are
// kept before physical removal.
const DefaultPurgeRetention = 30 * 24 * time.Hour

// CleanupService physically removes soft-deleted role and permission
// relationships once they age past the retention window.
type CleanupService struct {
	grants    port.GrantRepository
	clock     port.Clock
	logger    *zap.Logger
	retention time.Duration
}

// NewCleanupService constructs a CleanupService. A non-positive
// retention falls back to the default.
func NewCleanupService(grants port.GrantRepository, clock port.Clock, log *zap.Logger, retention time.Duration) *CleanupService {
	if clock == nil {
		clock = port.SystemClock()
	}
	if retention <= 0 {
		retention = DefaultPurgeRetention
	}
	return &CleanupService{
		grants:    grants,
		clock:     clock,
		logger:    log,
		retention: retention,
	}
}

// PurgeOnce removes rows soft-deleted before now minus the retention
// window and returns the number of rows removed.
func (s *CleanupService) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().UTC().Add(-s.retention)

	purged, err := s.grants.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted grants: %w", err)
	}

	if purged > 0 {
		metrics.GrantsPurged.Add(float64(purged))
		s.logger.Info("purged soft-deleted grants",
			zap.Int64("rows", purged),
			zap.Time("cutoff", cutoff),
		)
	}

	return purged, nil
}

// Run purges on the given interval until the context is cancelled.
func (s *CleanupService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeOnce(ctx); err != nil {
				s.logger.Error("cleanup pass failed", zap.Error(err))
			}
		}
	}
}
