// Package reconcile reports order headers that were left without line items.
// It never deletes anything.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type orphanLister interface {
	ListOrphans(ctx context.Context, createdBefore time.Time) ([]domain.Order, error)
}

// Sweeper lists orphaned orders older than a minimum age, so headers whose items are
// still being written are not reported.
type Sweeper struct {
	repo    orphanLister
	minAge  time.Duration
	timeout time.Duration
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewSweeper(repo orphanLister, minAge time.Duration, logger logrus.FieldLogger) *Sweeper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sweeper{
		repo:    repo,
		minAge:  minAge,
		timeout: time.Minute,
		logger:  logger.WithField("job", "orphan_sweep"),
		now:     time.Now,
	}
}

// Run performs one sweep and returns the orphans it found.
func (s *Sweeper) Run(ctx context.Context) ([]domain.Order, error) {
	cutoff := s.now().Add(-s.minAge)
	orphans, err := s.repo.ListOrphans(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	metrics.SetOrphanOrders(len(orphans))

	for _, o := range orphans {
		owner := ""
		if o.UserID != nil {
			owner = *o.UserID
		}
		s.logger.WithFields(logrus.Fields{
			"order_id":    o.ID,
			"user_id":     owner,
			"total_cents": o.TotalCents,
			"created_at":  o.CreatedAt.Format(time.RFC3339),
		}).Warn("order has no line items")
	}
	s.logger.WithField("count", len(orphans)).Info("sweep finished")
	return orphans, nil
}

// Schedule runs the sweep on spec (standard five-field cron syntax) until ctx is done.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if _, err := s.Run(runCtx); err != nil {
			s.logger.WithError(err).Error("sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule orphan sweep %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	s.logger.WithField("schedule", spec).Info("orphan sweep scheduled")
	return c, nil
}
