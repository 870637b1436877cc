package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/push-gateway/internal/events"
)

// fakeWriter captures produced messages.
type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishUsesRoutingKeyAsRecordKey(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewPublisherWithWriter(writer, zaptest.NewLogger(t))

	res := events.NotificationResult{CorrelationID: "c1", Successful: true}
	header := events.NewHeader(events.TypeNotificationResult, "apns", "user-1")

	require.NoError(t, publisher.Publish(context.Background(), []byte("ok"), header, res))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("ok"), writer.messages[0].Key)

	env, err := events.Decode(writer.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, events.TypeNotificationResult, env.Header.Type)
	assert.Equal(t, "apns", env.Header.Source)
	assert.Equal(t, "user-1", env.Header.RecipientID)

	decoded, err := env.NotificationResult()
	require.NoError(t, err)
	assert.Equal(t, "c1", decoded.CorrelationID)
	assert.True(t, decoded.Successful)
}

func TestPublishSurfacesProducerErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("queue full")}
	publisher := NewPublisherWithWriter(writer, zaptest.NewLogger(t))

	err := publisher.Publish(context.Background(),
		[]byte("retry"),
		events.NewHeader(events.TypeNotificationResult, "fcm", ""),
		events.NotificationResult{},
	)
	assert.Error(t, err)
}

func TestCloseClosesWriter(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewPublisherWithWriter(writer, zaptest.NewLogger(t))

	publisher.Close()
	assert.True(t, writer.closed)
}
