// Package supervisor owns the process lifecycle: it brings up the
// metrics endpoint, the request loop and the configuration loop, then
// waits for SIGINT/SIGTERM and orchestrates a clean drain.
package supervisor

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/metrics"
	"github.com/arc-self/push-gateway/internal/reporter"
)

// TenantCounter is implemented by handlers that carry a tenant registry.
type TenantCounter interface {
	TenantCount() int
}

// Run starts the system for the given handler and blocks until a
// termination signal has been handled. In-flight send tasks are not
// awaited; operators relying on a clean drain stop the input flow first
// and watch the in-flight gauge.
func Run(workerName string, cfg *config.Config, handler kafka.Handler, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bringing up the system",
		zap.String("worker", workerName),
		zap.String("brokers", cfg.Kafka.Brokers),
		zap.String("log_host", cfg.Log.Host),
	)

	consumer := kafka.NewConsumer(cfg.Kafka, handler, logger)
	statistics := metrics.NewServer(logger)

	var tenants func() int
	if counter, ok := handler.(TenantCounter); ok {
		tenants = counter.TenantCount
	}
	stats := reporter.New(tenants, logger)
	if err := stats.Start(); err != nil {
		return err
	}
	defer stats.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting the request consumer")
		err := consumer.RunRequests(gctx)
		logger.Info("exiting request consumer")
		return err
	})

	g.Go(func() error {
		logger.Info("starting the config consumer")
		err := consumer.RunConfigs(gctx)
		logger.Info("exiting config consumer")
		return err
	})

	g.Go(func() error {
		logger.Info("starting statistics server")
		errCh := make(chan error, 1)
		go func() { errCh <- statistics.Start() }()

		select {
		case <-gctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := statistics.Shutdown(shutdownCtx); err != nil {
				logger.Error("statistics server shutdown error", zap.Error(err))
			}
			logger.Info("exiting statistics server")
			return nil
		case err := <-errCh:
			return err
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("system shut down cleanly")
	return nil
}
