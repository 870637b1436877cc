package httpreq

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/classify"
	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/metrics"
)

// Source is the header source stamped on HTTP response records.
const Source = "http_requester"

// Handler binds the requester to the dispatch engine. This worker
// ignores push notifications and tenant configuration entirely.
type Handler struct {
	requester *Requester
	publisher *kafka.Publisher
	logger    *zap.Logger
}

// NewHandler creates the HTTP worker logic publishing through the given
// publisher.
func NewHandler(publisher *kafka.Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		requester: NewRequester(),
		publisher: publisher,
		logger:    logger,
	}
}

// Accepts rejects push notifications; this worker serves HttpRequest
// events only.
func (h *Handler) Accepts(_ *events.PushNotification) bool { return false }

// HandleNotification is not served by this worker.
func (h *Handler) HandleNotification(_ context.Context, _ []byte, _ *events.PushNotification) {
	h.logger.Warn("we don't handle push notification events here")
}

// HandleHTTP performs the outbound request and publishes its outcome.
// The incoming record key, when present, is preserved on the response so
// downstream consumers keep their routing; otherwise the routing verdict
// is used.
func (h *Handler) HandleHTTP(ctx context.Context, key []byte, event *events.HTTPRequest) {
	response := &events.HTTPResponse{Request: event}

	result, reqErr := h.requester.Do(ctx, event)
	routing := classify.RouteOK

	switch {
	case reqErr == nil:
		metrics.Callbacks.WithLabelValues(strconv.Itoa(result.Status)).Inc()

		response.StatusCode = int32(result.Status)
		response.Body = result.Body
		response.Headers = flattenHeaders(result)

		h.logger.Info("successful http request",
			zap.String("uri", event.URI),
			zap.Int("status", result.Status),
		)

	case reqErr.Kind == ErrorTimeout:
		metrics.Callbacks.WithLabelValues("timeout").Inc()
		response.Body = []byte("Timeout")
		routing = classify.RouteNoRetry
		h.logger.Error("http request timeout",
			zap.String("uri", event.URI), zap.Error(reqErr.Cause))

	case reqErr.Kind == ErrorConnection:
		metrics.Callbacks.WithLabelValues("connection").Inc()
		response.Body = []byte("Connection Error")
		routing = classify.RouteNoRetry
		h.logger.Error("http request connection error",
			zap.String("uri", event.URI), zap.Error(reqErr.Cause))

	default:
		metrics.Callbacks.WithLabelValues("internal").Inc()
		response.Body = []byte("Internal Error")
		routing = classify.RouteNoRetry
		h.logger.Error("http request body read error",
			zap.String("uri", event.URI), zap.Error(reqErr.Cause))
	}

	if len(key) == 0 {
		key = []byte(routing)
	}

	header := events.NewHeader(events.TypeHTTPResponse, Source, event.Header.RecipientID)
	if err := h.publisher.Publish(ctx, key, header, response); err != nil {
		h.logger.Error("error publishing a http response",
			zap.String("uri", event.URI), zap.Error(err))
	}
}

// HandleConfig is not served by this worker.
func (h *Handler) HandleConfig(_ context.Context, _ string, _ *events.Application) {
	h.logger.Debug("skipping configuration")
}

func flattenHeaders(result *Result) map[string]string {
	headers := make(map[string]string, len(result.Headers))
	for name := range result.Headers {
		headers[name] = result.Headers.Get(name)
	}
	return headers
}
