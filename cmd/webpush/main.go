// Package main is the entry point for the Web Push worker: it consumes
// push requests from the log, dispatches them to Web Push endpoints per
// tenant, and publishes classified results back to the log.
package main

import (
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/supervisor"
	"github.com/arc-self/push-gateway/internal/webpush"
)

const workerName = "web_push"

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

	handler := webpush.NewHandler(publisher, logger)

	if err := supervisor.Run(workerName, cfg, handler, logger); err != nil {
		logger.Fatal("system failure", zap.Error(err))
	}
}
