// Package reporter emits periodic operational statistics so operators
// can watch drain progress and tenant population without scraping the
// metrics endpoint.
package reporter

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reporter logs gateway statistics on a fixed schedule.
type Reporter struct {
	cron    *cron.Cron
	tenants func() int
	logger  *zap.Logger
}

// New creates a reporter reading the tenant population through tenants.
// A nil tenants func is allowed for workers without a registry.
func New(tenants func() int, logger *zap.Logger) *Reporter {
	return &Reporter{
		cron:    cron.New(),
		tenants: tenants,
		logger:  logger,
	}
}

// Start registers the schedule and begins reporting.
func (r *Reporter) Start() error {
	if _, err := r.cron.AddFunc("@every 1m", r.report); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop drains the scheduler.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reporter) report() {
	fields := []zap.Field{}
	if r.tenants != nil {
		fields = append(fields, zap.Int("applications", r.tenants()))
	}
	r.logger.Info("gateway statistics", fields...)
}
