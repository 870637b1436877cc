// Package dispatcher provides the pieces shared by every worker's event
// handler: publishing classified results back to the log with the
// structured audit fields the log pipeline expects.
package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
)

// Responder publishes notification results for one worker.
type Responder struct {
	publisher *kafka.Publisher
	source    string
	logger    *zap.Logger
}

// NewResponder creates a responder stamping results with the given
// source (the protocol name).
func NewResponder(publisher *kafka.Publisher, source string, logger *zap.Logger) *Responder {
	return &Responder{publisher: publisher, source: source, logger: logger}
}

// Publish hands one result envelope to the producer under the routing
// key and writes the result audit log line. Failures are logged, never
// propagated: the request's offset may already be advancing and the
// result is then redelivered by the at-least-once contract.
func (r *Responder) Publish(ctx context.Context, routingKey string, pn *events.PushNotification, res *events.NotificationResult) {
	header := events.NewHeader(events.TypeNotificationResult, r.source, pn.Header.RecipientID)

	r.logResult(pn, res)

	if err := r.publisher.Publish(ctx, []byte(routingKey), header, res); err != nil {
		r.logger.Error("error publishing a notification result",
			zap.String("correlation_id", pn.CorrelationID),
			zap.Error(err),
		)
	}
}

func (r *Responder) logResult(pn *events.PushNotification, res *events.NotificationResult) {
	title := "Successfully sent a push notification"
	if !res.Successful {
		title = "Error sending a push notification"
	}

	fields := []zap.Field{
		zap.String("action", string(logging.ActionNotificationResult)),
		zap.String("correlation_id", pn.CorrelationID),
		zap.String("device_token", pn.DeviceToken),
		zap.String("app_id", pn.ApplicationID),
		zap.String("campaign_id", pn.CampaignID),
		zap.String("event_source", pn.Header.Source),
		zap.Bool("successful", res.Successful),
	}
	if res.Error != events.ResultErrorNone {
		fields = append(fields, zap.String("error", string(res.Error)))
	}
	if res.Reason != "" {
		fields = append(fields, zap.String("reason", res.Reason))
	}

	if res.Successful {
		r.logger.Info(title, fields...)
	} else {
		r.logger.Warn(title, fields...)
	}
}
