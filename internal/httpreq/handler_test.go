package httpreq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
	"github.com/arc-self/push-gateway/internal/metrics"
)

type captureWriter struct {
	messages []kafkago.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newHandler(t *testing.T) (*Handler, *captureWriter) {
	t.Helper()
	writer := &captureWriter{}
	logger := zaptest.NewLogger(t)
	return NewHandler(kafka.NewPublisherWithWriter(writer, logger), logger), writer
}

func decodeResponse(t *testing.T, msg kafkago.Message) *events.HTTPResponse {
	t.Helper()
	env, err := events.Decode(msg.Value)
	require.NoError(t, err)
	require.Equal(t, events.TypeHTTPResponse, env.Header.Type)
	res, err := env.HTTPResponse()
	require.NoError(t, err)
	return res
}

func TestHandleHTTPSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Out", "value")
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	h, writer := newHandler(t)
	h.HandleHTTP(context.Background(), nil, &events.HTTPRequest{
		RequestType:   events.HTTPVerbGet,
		URI:           server.URL,
		Timeout:       2000,
		CorrelationID: "c5",
	})

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("ok"), writer.messages[0].Key)

	res := decodeResponse(t, writer.messages[0])
	assert.Equal(t, int32(200), res.StatusCode)
	assert.Equal(t, "pong", string(res.Body))
	assert.Equal(t, "value", res.Headers["X-Out"])
	require.NotNil(t, res.Request)
	assert.Equal(t, "c5", res.Request.CorrelationID)
}

func TestHandleHTTPTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	before := testutil.ToFloat64(metrics.Callbacks.WithLabelValues("timeout"))

	h, writer := newHandler(t)
	h.HandleHTTP(context.Background(), nil, &events.HTTPRequest{
		RequestType: events.HTTPVerbGet,
		URI:         server.URL,
		Timeout:     50,
	})

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("no_retry"), writer.messages[0].Key)

	res := decodeResponse(t, writer.messages[0])
	assert.Equal(t, "Timeout", string(res.Body))
	assert.Zero(t, res.StatusCode)

	after := testutil.ToFloat64(metrics.Callbacks.WithLabelValues("timeout"))
	assert.Equal(t, before+1, after)
}

func TestHandleHTTPConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	uri := server.URL
	server.Close()

	h, writer := newHandler(t)
	h.HandleHTTP(context.Background(), nil, &events.HTTPRequest{
		RequestType: events.HTTPVerbGet,
		URI:         uri,
		Timeout:     1000,
	})

	require.Len(t, writer.messages, 1)
	res := decodeResponse(t, writer.messages[0])
	assert.Equal(t, "Connection Error", string(res.Body))
}

func TestHandleHTTPPreservesIncomingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	h, writer := newHandler(t)
	h.HandleHTTP(context.Background(), []byte("caller-key"), &events.HTTPRequest{
		RequestType: events.HTTPVerbGet,
		URI:         server.URL,
		Timeout:     2000,
	})

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("caller-key"), writer.messages[0].Key)
}

func TestAcceptsRejectsPushNotifications(t *testing.T) {
	h, _ := newHandler(t)
	assert.False(t, h.Accepts(&events.PushNotification{Apple: &events.ApplePayload{}}))
}
