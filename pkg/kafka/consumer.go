package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/slspinola/bee2waste-sub002/pkg/logging"
)

// MessageHandler processes one consumed message payload.
type MessageHandler func(ctx context.Context, key []byte, value []byte, headers map[string]string) error

// Consumer reads topics with a consumer group, dispatching by the ce-type
// header when handlers are registered per event type.
type Consumer struct {
	config   *Config
	logger   *logging.Logger
	handlers map[string]map[string]MessageHandler // topic -> eventType -> handler
	fallback map[string]MessageHandler            // topic -> handler for untyped streams
	readers  []*kafka.Reader
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewConsumer creates a Consumer
func NewConsumer(cfg *Config, logger *logging.Logger) *Consumer {
	return &Consumer{
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]map[string]MessageHandler),
		fallback: make(map[string]MessageHandler),
	}
}

// Subscribe registers a handler for a given event type on a topic.
func (c *Consumer) Subscribe(topic, eventType string, handler MessageHandler) {
	if c.handlers[topic] == nil {
		c.handlers[topic] = make(map[string]MessageHandler)
	}
	c.handlers[topic][eventType] = handler
}

// SubscribeAll registers a handler for every message on a topic, regardless
// of event type header. Device streams use this.
func (c *Consumer) SubscribeAll(topic string, handler MessageHandler) {
	c.fallback[topic] = handler
}

// Start launches one reader goroutine per subscribed topic.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	topics := make(map[string]bool)
	for topic := range c.handlers {
		topics[topic] = true
	}
	for topic := range c.fallback {
		topics[topic] = true
	}

	for topic := range topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.config.Brokers,
			GroupID:  c.config.ConsumerGroup,
			Topic:    topic,
			MinBytes: c.config.MinBytes,
			MaxBytes: c.config.MaxBytes,
			MaxWait:  c.config.MaxWait,
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go c.consume(ctx, topic, reader)
	}
}

func (c *Consumer) consume(ctx context.Context, topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("Kafka read failed", "topic", topic, "error", err.Error())
			continue
		}

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}

		handler := c.resolveHandler(topic, headers["ce-type"])
		if handler == nil {
			c.logger.Debug("No handler for message", "topic", topic, "eventType", headers["ce-type"])
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value, headers); err != nil {
			c.logger.Error("Message handler failed",
				"topic", topic,
				"eventType", headers["ce-type"],
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err.Error(),
			)
		}
	}
}

func (c *Consumer) resolveHandler(topic, eventType string) MessageHandler {
	if byType, ok := c.handlers[topic]; ok {
		if h, ok := byType[eventType]; ok {
			return h
		}
	}
	return c.fallback[topic]
}

// Close stops all readers and waits for the consume loops to exit.
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}

	var firstErr error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close reader: %w", err)
		}
	}
	c.wg.Wait()
	return firstErr
}
