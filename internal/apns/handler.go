package apns

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/classify"
	"github.com/arc-self/push-gateway/internal/dispatcher"
	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/metrics"
	"github.com/arc-self/push-gateway/internal/registry"
)

// Source is the header source stamped on APNs results.
const Source = "apns"

// Handler binds the APNs adapter to the dispatch engine.
type Handler struct {
	registry  *registry.Registry[*Notifier]
	responder *dispatcher.Responder
	logger    *zap.Logger
}

// NewHandler creates the APNs worker logic publishing through the given
// publisher.
func NewHandler(publisher *kafka.Publisher, logger *zap.Logger) *Handler {
	h := &Handler{
		responder: dispatcher.NewResponder(publisher, Source, logger),
		logger:    logger,
	}

	h.registry = registry.New(
		func(app *events.Application) (*Notifier, error) {
			return buildNotifier(app, logger)
		},
		logger,
		registry.WithRelease(func(n *Notifier) { n.Close() }),
	)

	return h
}

func buildNotifier(app *events.Application, logger *zap.Logger) (*Notifier, error) {
	cfg := app.Apple
	switch {
	case cfg.Token != nil:
		return NewTokenNotifier(cfg, logger)
	case cfg.Certificate != nil:
		return NewCertificateNotifier(cfg, logger)
	default:
		return nil, errors.New("apple configuration carries neither token nor certificate")
	}
}

// TenantCount reports the number of active tenants.
func (h *Handler) TenantCount() int {
	return h.registry.Len()
}

// Accepts reports whether this worker handles the notification.
func (h *Handler) Accepts(pn *events.PushNotification) bool {
	return pn.Apple != nil
}

// HandleNotification sends one notification, classifies the outcome and
// publishes the result envelope.
func (h *Handler) HandleNotification(ctx context.Context, _ []byte, pn *events.PushNotification) {
	entry, ok := h.registry.Get(pn.ApplicationID)
	if !ok {
		metrics.Callbacks.WithLabelValues("certificate_missing").Inc()
		res, routing := classify.NoTenant(pn)
		h.responder.Publish(ctx, routing, pn, res)
		return
	}

	apnsResult := entry.Client.Send(pn)
	pn.Apple.Result = apnsResult

	metrics.Callbacks.WithLabelValues(callbackLabel(apnsResult)).Inc()

	res, routing := classify.Apple(pn, apnsResult)
	h.responder.Publish(ctx, routing, pn, res)
}

// callbackLabel picks the counter label: success, the error reason when
// APNs supplied one, otherwise the status.
func callbackLabel(r *events.ApnsResult) string {
	if r.Successful {
		return "success"
	}
	if r.Reason != "" {
		return metrics.StatusLabel(string(r.Reason))
	}
	return metrics.StatusLabel(string(r.Status))
}

// HandleHTTP is not served by this worker.
func (h *Handler) HandleHTTP(_ context.Context, _ []byte, _ *events.HTTPRequest) {
	h.logger.Warn("we don't handle http request events here")
}

// HandleConfig applies a tenant configuration change.
func (h *Handler) HandleConfig(ctx context.Context, appID string, app *events.Application) {
	if app == nil || app.Apple == nil {
		h.registry.Remove(appID)
		return
	}

	h.logConfigChange(app)
	// Errors are already logged and counted by the registry; the loop
	// continues regardless.
	_ = h.registry.Upsert(ctx, app)
}

// logConfigChange emits the structured config audit event.
func (h *Handler) logConfigChange(app *events.Application) {
	fields := []zap.Field{
		zap.String("app_id", app.ID),
		zap.String("action", string(logging.ActionConsumerCreate)),
		zap.String("endpoint", string(app.Apple.Endpoint)),
	}

	if token := app.Apple.Token; token != nil {
		fields = append(fields,
			zap.String("connection_type", "token"),
			zap.String("key_id", token.KeyID),
			zap.String("team_id", token.TeamID),
		)
	} else if app.Apple.Certificate != nil {
		fields = append(fields, zap.String("connection_type", "certificate"))
	}

	h.logger.Info("push config update", fields...)
}
