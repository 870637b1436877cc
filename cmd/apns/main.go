// Package main is the entry point for the APNs worker: it consumes push
// requests from the log, dispatches them to Apple's HTTP/2 push service
// per tenant, and publishes classified results back to the log.
package main

import (
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/apns"
	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/supervisor"
)

const workerName = "apns"

func main() {
	logger, err := logging.New(workerName)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(workerName)
	if err != nil {
		logger.Fatal("configuration failed", zap.Error(err))
	}

	publisher := kafka.NewPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	handler := apns.NewHandler(publisher, logger)

	if err := supervisor.Run(workerName, cfg, handler, logger); err != nil {
		logger.Fatal("system failure", zap.Error(err))
	}
}
