// Package logging builds the process-wide structured logger.
//
// LOG_FORMAT=json selects the production JSON encoder; anything else a
// human-readable console encoder. Every line carries the worker name as
// application_name and the APP_ENV value (default "development") as
// environment, matching the metadata the downstream log relay expects.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Action tags registry and result log events for the log pipeline.
type Action string

const (
	ActionConsumerCreate     Action = "ConsumerCreate"
	ActionConsumerDelete     Action = "ConsumerDelete"
	ActionNotificationResult Action = "NotificationResult"
)

// New constructs the logger for the named worker.
func New(workerName string) (*zap.Logger, error) {
	environment := os.Getenv("APP_ENV")
	if environment == "" {
		environment = "development"
	}

	var cfg zap.Config
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("application_name", workerName),
		zap.String("environment", environment),
	), nil
}
