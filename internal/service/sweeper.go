package service

import (
	"context"
	"time"

	"github.com/qcom/intake/internal/kv"
	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/repository"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically removes expired OTPs and expired entries held by
// process-local key-value stores.
type Sweeper struct {
	otps     repository.OTPRepository
	caches   []kv.Sweeper
	interval time.Duration
	logger   *logrus.Logger
	nowF     func() time.Time
}

func NewSweeper(otps repository.OTPRepository, interval time.Duration, logger *logrus.Logger, caches ...kv.Sweeper) *Sweeper {
	return &Sweeper{
		otps:     otps,
		caches:   caches,
		interval: interval,
		logger:   logger,
		nowF:     time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.nowF()

	removed, err := s.otps.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to sweep expired OTPs")
	}
	metrics.SweptEntries.WithLabelValues("otp").Add(float64(removed))

	var cached int
	for _, c := range s.caches {
		cached += c.Sweep(now)
	}
	metrics.SweptEntries.WithLabelValues("kv").Add(float64(cached))

	if removed > 0 || cached > 0 {
		s.logger.WithFields(logrus.Fields{
			"otps":       removed,
			"kv_entries": cached,
		}).Debug("Swept expired entries")
	}
}
