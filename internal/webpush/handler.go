package webpush

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/classify"
	"github.com/arc-self/push-gateway/internal/dispatcher"
	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/metrics"
	"github.com/arc-self/push-gateway/internal/registry"
)

// Source is the header source stamped on Web Push results.
const Source = "webpush"

// Handler binds the Web Push adapter to the dispatch engine.
type Handler struct {
	registry  *registry.Registry[*Sender]
	responder *dispatcher.Responder
	logger    *zap.Logger
}

// NewHandler creates the Web Push worker logic publishing through the
// given publisher.
func NewHandler(publisher *kafka.Publisher, logger *zap.Logger) *Handler {
	h := &Handler{
		responder: dispatcher.NewResponder(publisher, Source, logger),
		logger:    logger,
	}

	h.registry = registry.New(
		func(app *events.Application) (*Sender, error) {
			return NewSender(app.Web, logger)
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
	return pn.Web != nil
}

// HandleNotification sends one notification, classifies the outcome and
// publishes the result envelope.
func (h *Handler) HandleNotification(ctx context.Context, _ []byte, pn *events.PushNotification) {
	entry, ok := h.registry.Get(pn.ApplicationID)
	if !ok {
		metrics.Callbacks.WithLabelValues("certificate_missing").Inc()
		pn.Web.Result = &events.WebPushResult{Successful: false, Error: events.WebPushErrorUnspecified}
		res, routing := classify.NoTenant(pn)
		h.responder.Publish(ctx, routing, pn, res)
		return
	}

	webResult, retryAfterHint := entry.Client.Send(ctx, pn)
	pn.Web.Result = webResult

	metrics.Callbacks.WithLabelValues(callbackLabel(webResult)).Inc()

	h.logPushService(pn)

	res, routing := classify.Web(pn, webResult, retryAfterHint)
	h.responder.Publish(ctx, routing, pn, res)
}

func callbackLabel(r *events.WebPushResult) string {
	if r.Successful {
		return "success"
	}
	return metrics.StatusLabel(string(r.Error))
}

// logPushService records which push service hosts the subscription; the
// endpoint URI travels in the device token.
func (h *Handler) logPushService(pn *events.PushNotification) {
	endpoint, err := url.Parse(pn.DeviceToken)
	if err != nil || endpoint.Host == "" {
		return
	}
	h.logger.Debug("push service",
		zap.String("push_service", endpoint.Host),
		zap.String("app_id", pn.ApplicationID),
	)
}

// HandleHTTP is not served by this worker.
func (h *Handler) HandleHTTP(_ context.Context, _ []byte, _ *events.HTTPRequest) {
	h.logger.Warn("we don't handle http request events here")
}

// HandleConfig applies a tenant configuration change. An application
// without a web block deletes any existing entry.
func (h *Handler) HandleConfig(ctx context.Context, appID string, app *events.Application) {
	if app == nil || app.Web == nil {
		h.registry.Remove(appID)
		return
	}

	h.logger.Info("push config update",
		zap.String("app_id", app.ID),
		zap.String("action", string(logging.ActionConsumerCreate)),
		zap.Bool("fcm_api_key", app.Web.FCMAPIKey != ""),
	)
	_ = h.registry.Upsert(ctx, app)
}
