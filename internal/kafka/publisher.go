// Package kafka binds the dispatch engine to the commit log: the
// request and configuration consumer loops, the offset tracker and the
// response publisher.
package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/events"
)

// queueFullWindow bounds how long a publish may block when the producer
// queue is full.
const queueFullWindow = 1000 * time.Millisecond

// Writer is the subset of the producer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher serializes result envelopes and hands them to the producer.
// It is safe for use from many in-flight tasks concurrently.
type Publisher struct {
	writer Writer
	logger *zap.Logger
}

// NewPublisher creates a publisher writing to the configured output
// topic. The record key carries the routing decision for downstream
// routers.
func NewPublisher(cfg config.Kafka, logger *zap.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.BrokerList()...),
		Topic:        cfg.OutputTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		WriteTimeout: queueFullWindow,
		BatchTimeout: 10 * time.Millisecond,
	}

	if cfg.Username != "" {
		writer.Transport = &kafkago.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
		}
	}

	return &Publisher{writer: writer, logger: logger}
}

// NewPublisherWithWriter wires an explicit producer handle; used by
// tests.
func NewPublisherWithWriter(writer Writer, logger *zap.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

// Publish encodes the envelope and enqueues it under the given record
// key. The call blocks at most the queue-full window.
func (p *Publisher) Publish(ctx context.Context, key []byte, header events.Header, body interface{}) error {
	value, err := events.Encode(header, body)
	if err != nil {
		return fmt.Errorf("publish %s: %w", header.Type, err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("publish %s: %w", header.Type, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("error closing producer", zap.Error(err))
	}
}
