package fcm

import (
	"context"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/classify"
	"github.com/arc-self/push-gateway/internal/dispatcher"
	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/metrics"
	"github.com/arc-self/push-gateway/internal/registry"
)

// Source is the header source stamped on FCM results.
const Source = "fcm"

// Handler binds the FCM adapter to the dispatch engine.
type Handler struct {
	registry  *registry.Registry[*Sender]
	responder *dispatcher.Responder
	logger    *zap.Logger
}

// NewHandler creates the FCM worker logic publishing through the given
// publisher.
func NewHandler(publisher *kafka.Publisher, logger *zap.Logger) *Handler {
	h := &Handler{
		responder: dispatcher.NewResponder(publisher, Source, logger),
		logger:    logger,
	}

	h.registry = registry.New(
		func(app *events.Application) (*Sender, error) {
			return NewSender(app.Google, logger)
		},
		logger,
	)

	return h
}

// TenantCount reports the number of active tenants.
func (h *Handler) TenantCount() int {
	return h.registry.Len()
}

// Accepts reports whether this worker handles the notification.
func (h *Handler) Accepts(pn *events.PushNotification) bool {
	return pn.Google != nil
}

// HandleNotification sends one notification, classifies the outcome and
// publishes the result envelope.
func (h *Handler) HandleNotification(ctx context.Context, _ []byte, pn *events.PushNotification) {
	entry, ok := h.registry.Get(pn.ApplicationID)
	if !ok {
		metrics.Callbacks.WithLabelValues("certificate_missing").Inc()
		pn.Google.Result = &events.FcmResult{Successful: false, Status: events.FcmStatusMissingCertificate}
		res, routing := classify.NoTenant(pn)
		h.responder.Publish(ctx, routing, pn, res)
		return
	}

	fcmResult := entry.Client.Send(pn)
	pn.Google.Result = fcmResult

	metrics.Callbacks.WithLabelValues(callbackLabel(fcmResult)).Inc()

	res, routing := classify.Fcm(pn, fcmResult)
	h.responder.Publish(ctx, routing, pn, res)
}

func callbackLabel(r *events.FcmResult) string {
	if r.Successful {
		return "success"
	}
	if r.Status == events.FcmStatusUnknown {
		return "unknown_error"
	}
	return metrics.StatusLabel(string(r.Status))
}

// HandleHTTP is not served by this worker.
func (h *Handler) HandleHTTP(_ context.Context, _ []byte, _ *events.HTTPRequest) {
	h.logger.Warn("we don't handle http request events here")
}

// HandleConfig applies a tenant configuration change.
func (h *Handler) HandleConfig(ctx context.Context, appID string, app *events.Application) {
	if app == nil || app.Google == nil {
		h.registry.Remove(appID)
		return
	}

	h.logger.Info("push config update",
		zap.String("app_id", app.ID),
		zap.String("action", string(logging.ActionConsumerCreate)),
	)
	_ = h.registry.Upsert(ctx, app)
}
