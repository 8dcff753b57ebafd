package service

import (
	"context"
	"errors"
	"time"

	"github.com/darkodi/shortlink/internal/metrics"
)

// ErrSweepUnsupported is returned when the store cannot delete in bulk
var ErrSweepUnsupported = errors.New("store does not support expired purge")

// SweepExpired deletes every mapping that has expired by now. Cached
// entries are left to their own TTL, which never outlives the expiry.
func (s *URLService) SweepExpired(ctx context.Context) (int64, error) {
	purger, ok := s.store.(ExpiredPurger)
	if !ok {
		return 0, ErrSweepUnsupported
	}

	n, err := purger.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ExpiredPurged.Add(float64(n))
		s.log.Info("expired mappings swept", "count", n)
	}
	return n, nil
}

// StartSweeper runs SweepExpired every interval until ctx is done
func (s *URLService) StartSweeper(ctx context.Context, interval time.Duration) error {
	if _, ok := s.store.(ExpiredPurger); !ok {
		return ErrSweepUnsupported
	}
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	go s.sweepLoop(ctx, interval)
	return nil
}

func (s *URLService) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("sweep failed", "error", err.Error())
			}
		}
	}
}
