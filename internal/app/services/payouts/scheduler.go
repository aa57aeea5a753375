package payouts

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/tourlink/marketplace/internal/app/domain/month"
	"github.com/tourlink/marketplace/internal/app/system"
	"github.com/tourlink/marketplace/pkg/logger"
)

// DefaultAutoRunSchedule runs the calculation for the just-closed month at
// 03:00 on the 1st of each month.
const DefaultAutoRunSchedule = "0 3 1 * *"

// AutoRunner periodically recalculates the previous calendar month. A month
// that has been administratively locked is skipped, never overwritten.
type AutoRunner struct {
	service  *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

var _ system.Service = (*AutoRunner)(nil)

// NewAutoRunner builds the scheduler. An empty schedule falls back to
// DefaultAutoRunSchedule.
func NewAutoRunner(service *Service, schedule string, log *logger.Logger) *AutoRunner {
	if schedule == "" {
		schedule = DefaultAutoRunSchedule
	}
	if log == nil {
		log = logger.NewDefault("payout-auto-runner")
	}
	return &AutoRunner{service: service, schedule: schedule, log: log}
}

func (r *AutoRunner) Name() string { return "payout-auto-runner" }

func (r *AutoRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { r.run(ctx) }); err != nil {
		return err
	}
	c.Start()

	r.cron = c
	r.running = true
	r.log.WithField("schedule", r.schedule).Info("payout auto-runner started")
	return nil
}

func (r *AutoRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (r *AutoRunner) run(ctx context.Context) {
	target := month.Current().Previous().String()

	locked, err := r.service.adminLocked(ctx, target)
	if err != nil {
		r.log.WithError(err).Warnf("auto-run lock check for %s failed", target)
		return
	}
	if locked {
		r.log.WithField("month", target).Info("auto-run skipped: month is locked")
		return
	}

	summary, err := r.service.RunMonthlyCalculation(ctx, target)
	if err != nil {
		r.log.WithError(err).Warnf("auto-run for %s failed", target)
		return
	}
	r.log.WithField("month", target).
		WithField("guides_scored", summary.GuidesScored).
		WithField("grand_total", summary.GrandTotal).
		Info("auto-run completed")
}
