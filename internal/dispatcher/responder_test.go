package dispatcher

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/kafka"
)

type captureWriter struct {
	messages []kafkago.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestPublishStampsHeaderFromNotification(t *testing.T) {
	writer := &captureWriter{}
	logger := zaptest.NewLogger(t)
	responder := NewResponder(kafka.NewPublisherWithWriter(writer, logger), "webpush", logger)

	pn := &events.PushNotification{
		Header:        events.Header{Source: "rest-api", RecipientID: "user-9"},
		ApplicationID: "app-1",
		CorrelationID: "c9",
		Universe:      "u9",
	}
	res := &events.NotificationResult{
		Universe:      "u9",
		CorrelationID: "c9",
		Successful:    true,
	}

	responder.Publish(context.Background(), "ok", pn, res)

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("ok"), writer.messages[0].Key)

	env, err := events.Decode(writer.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, events.TypeNotificationResult, env.Header.Type)
	assert.Equal(t, "webpush", env.Header.Source)
	// The recipient id is copied from the notification header
	// unconditionally.
	assert.Equal(t, "user-9", env.Header.RecipientID)
	assert.NotZero(t, env.Header.CreatedAt)
}

func TestPublishSwallowsProducerErrors(t *testing.T) {
	writer := &captureWriter{err: errors.New("queue full")}
	logger := zaptest.NewLogger(t)
	responder := NewResponder(kafka.NewPublisherWithWriter(writer, logger), "apns", logger)

	// Must not panic or propagate; the engine never surfaces errors.
	responder.Publish(context.Background(), "retry",
		&events.PushNotification{CorrelationID: "c1"},
		&events.NotificationResult{})
}
