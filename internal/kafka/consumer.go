package kafka

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/metrics"
)

// appKeyRe filters configuration records: keys are either the literal
// prefix or carry the application id as the second segment of a
// "application|<id>" pair.
var appKeyRe = regexp.MustCompile(`application|([A-Z0-9]{8}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{12})`)

// Handler contains the per-protocol business logic driven by the
// consumer loops.
type Handler interface {
	// Accepts reports whether this worker handles the notification.
	Accepts(pn *events.PushNotification) bool

	// HandleNotification sends one push notification and publishes its
	// result. The engine runs it on its own task; it must not be assumed
	// to finish before the next record is pulled.
	HandleNotification(ctx context.Context, key []byte, pn *events.PushNotification)

	// HandleHTTP performs one generic outbound HTTP request.
	HandleHTTP(ctx context.Context, key []byte, req *events.HTTPRequest)

	// HandleConfig applies a tenant configuration. A nil app is a
	// deletion. Calls are serialized by the configuration loop.
	HandleConfig(ctx context.Context, appID string, app *events.Application)
}

// Consumer runs the two loops of the dispatch engine: request intake and
// tenant-configuration reconciliation.
type Consumer struct {
	cfg     config.Kafka
	handler Handler
	logger  *zap.Logger
	dialer  *kafkago.Dialer

	// configMu serializes HandleConfig across partition readers so the
	// registry keeps its single-writer discipline.
	configMu sync.Mutex
}

// NewConsumer builds the engine for one worker.
func NewConsumer(cfg config.Kafka, handler Handler, logger *zap.Logger) *Consumer {
	dialer := &kafkago.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	return &Consumer{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		dialer:  dialer,
	}
}

// RunRequests consumes the input topic in consumer-group mode, starting
// from the latest offset, until ctx is cancelled. On cancellation it
// issues a synchronous commit of the tracked consumer state and returns.
func (c *Consumer) RunRequests(ctx context.Context) error {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     c.cfg.BrokerList(),
		GroupID:     c.cfg.GroupID,
		Topic:       c.cfg.InputTopic,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      c.dialer,
	})
	defer reader.Close()

	tracker := NewOffsetTracker(reader)

	c.logger.Info("starting events processing",
		zap.String("topic", c.cfg.InputTopic),
		zap.String("group_id", c.cfg.GroupID),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			c.logger.Warn("error while receiving from kafka", zap.Error(err))
			continue
		}

		c.dispatch(ctx, msg)

		if err := tracker.TryStore(ctx, msg); err != nil {
			c.logger.Warn("error storing offset", zap.Error(err))
		}
	}

	// Shutdown: commit the current consumer state synchronously,
	// independently of the flush window.
	commitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Flush(commitCtx); err != nil {
		c.logger.Error("error committing consumer state on shutdown", zap.Error(err))
	}

	return nil
}

// dispatch decodes one record and hands it to the handler. Send tasks
// are spawned and not awaited; the runtime bounds their parallelism.
func (c *Consumer) dispatch(ctx context.Context, msg kafkago.Message) {
	env, err := events.Decode(msg.Value)
	if err != nil {
		c.logger.Error("invalid request envelope", zap.Error(err))
		return
	}

	switch env.Header.Type {
	case events.TypePushNotification:
		pn, err := env.PushNotification()
		if err != nil {
			c.logger.Error("error parsing a push notification event", zap.Error(err))
			return
		}
		if !c.handler.Accepts(pn) {
			c.logger.Debug("push notification skipped",
				zap.String("app_id", pn.ApplicationID))
			return
		}
		c.spawn(ctx, msg.Key, func(taskCtx context.Context, key []byte) {
			c.handler.HandleNotification(taskCtx, key, pn)
		})

	case events.TypeHTTPRequest:
		req, err := env.HTTPRequest()
		if err != nil {
			c.logger.Error("error parsing a http request event", zap.Error(err))
			return
		}
		c.spawn(ctx, msg.Key, func(taskCtx context.Context, key []byte) {
			c.handler.HandleHTTP(taskCtx, key, req)
		})

	default:
		c.logger.Debug("invalid type", zap.String("field_type", env.Header.Type))
	}
}

func (c *Consumer) spawn(ctx context.Context, key []byte, task func(context.Context, []byte)) {
	metrics.Inflight.Inc()
	timer := prometheus.NewTimer(metrics.ResponseTimes)

	go func() {
		defer metrics.Inflight.Dec()
		defer timer.ObserveDuration()
		task(ctx, key)
	}()
}

// RunConfigs replays and follows the configuration topic. Every
// partition is read from the beginning so a fresh instance rebuilds all
// tenant state; offsets are never committed for this loop.
func (c *Consumer) RunConfigs(ctx context.Context) error {
	partitions, err := c.configPartitions(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("starting config processing",
		zap.String("topic", c.cfg.ConfigTopic),
		zap.Int("partitions", len(partitions)),
	)

	var wg sync.WaitGroup
	for _, partition := range partitions {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:   c.cfg.BrokerList(),
			Topic:     c.cfg.ConfigTopic,
			Partition: partition,
			MinBytes:  1,
			MaxBytes:  10e6,
			MaxWait:   time.Second,
			Dialer:    c.dialer,
		})

		// Partition readers ignore ReaderConfig.StartOffset; replay is
		// pinned to the beginning explicitly.
		if err := reader.SetOffset(kafkago.FirstOffset); err != nil {
			reader.Close()
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()

			for {
				msg, err := reader.FetchMessage(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
						return
					}
					c.logger.Warn("error while receiving from kafka", zap.Error(err))
					continue
				}
				c.applyConfig(ctx, msg)
			}
		}()
	}

	wg.Wait()
	return nil
}

// configPartitions discovers the partition ids of the configuration
// topic from broker metadata.
func (c *Consumer) configPartitions(ctx context.Context) ([]int, error) {
	brokers := c.cfg.BrokerList()

	conn, err := c.dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(c.cfg.ConfigTopic)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// applyConfig filters, decodes and applies one configuration record. A
// missing or undecodable payload is a deletion; the handler receives
// configuration changes serialized.
func (c *Consumer) applyConfig(ctx context.Context, msg kafkago.Message) {
	key := string(msg.Key)

	m := appKeyRe.FindStringSubmatch(key)
	if m == nil {
		c.logger.Debug("not an application configuration", zap.String("key", key))
		return
	}

	appID := m[1]
	if appID == "" {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 || parts[1] == "" {
			c.logger.Debug("not an application configuration", zap.String("key", key))
			return
		}
		appID = parts[1]
	}

	if len(msg.Value) == 0 {
		c.logger.Debug("got null configuration",
			zap.String("universe", appID), zap.String("key", key))
		c.handleConfig(ctx, appID, nil)
		return
	}

	env, err := events.Decode(msg.Value)
	if err != nil {
		c.logger.Debug("got null configuration",
			zap.String("universe", appID), zap.String("key", key))
		c.handleConfig(ctx, appID, nil)
		return
	}

	if env.Header.Type != events.TypeApplication {
		c.logger.Debug("invalid type", zap.String("field_type", env.Header.Type))
		return
	}

	app, err := env.Application()
	if err != nil {
		c.logger.Error("error parsing an application event", zap.Error(err))
		c.handleConfig(ctx, appID, nil)
		return
	}
	if app.ID == "" {
		app.ID = appID
	}

	c.logger.Debug("got application configuration",
		zap.String("universe", appID), zap.String("key", key))
	c.handleConfig(ctx, appID, app)
}

func (c *Consumer) handleConfig(ctx context.Context, appID string, app *events.Application) {
	c.configMu.Lock()
	defer c.configMu.Unlock()
	c.handler.HandleConfig(ctx, appID, app)
}
