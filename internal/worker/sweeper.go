package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/mediacache"
)

// StartSweeper runs the periodic media cache sweep until ctx is done.
func StartSweeper(ctx context.Context, cache *mediacache.Cache, interval time.Duration, logger *zap.Logger) {
	if cache == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := cache.Sweep(time.Now()); evicted > 0 {
					logger.Info("media cache sweep", zap.Int("evicted", evicted))
				}
			}
		}
	}()
}
