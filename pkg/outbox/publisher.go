package outbox

import (
	"context"
	"time"

	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
)

// Publisher polls the outbox and relays pending events to Kafka.
type Publisher struct {
	repo      Repository
	producer  *kafka.Producer
	logger    *logging.Logger
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// PublisherConfig tunes the polling loop.
type PublisherConfig struct {
	Interval  time.Duration
	BatchSize int
}

// NewPublisher creates a Publisher
func NewPublisher(repo Repository, producer *kafka.Producer, logger *logging.Logger, cfg PublisherConfig) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called.
func (p *Publisher) Start(ctx context.Context) {
	go func() {
		defer close(p.stoppedCh)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.publishBatch(ctx)
			}
		}
	}()
	p.logger.Info("Outbox publisher started", "interval", p.interval.String(), "batchSize", p.batchSize)
}

// Stop terminates the loop and waits for the in-flight batch.
func (p *Publisher) Stop() {
	close(p.stopCh)
	<-p.stoppedCh
	p.logger.Info("Outbox publisher stopped")
}

func (p *Publisher) publishBatch(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("Outbox poll failed", "error", err.Error())
		return
	}

	for _, event := range events {
		if event.IsExhausted() {
			p.logger.Error("Outbox event exhausted retries, leaving for inspection",
				"eventId", event.ID,
				"eventType", event.EventType,
				"retryCount", event.RetryCount,
			)
			continue
		}

		err := p.producer.Publish(ctx, event.Topic, []byte(event.AggregateID), event.Payload, event.Headers)
		if err != nil {
			p.logger.Error("Outbox publish failed",
				"eventId", event.ID,
				"topic", event.Topic,
				"error", err.Error(),
			)
			if rerr := p.repo.IncrementRetry(ctx, event.ID, err.Error()); rerr != nil {
				p.logger.Error("Outbox retry update failed", "eventId", event.ID, "error", rerr.Error())
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			// The event will be re-sent next tick; consumers must dedupe on ce-id.
			p.logger.Error("Outbox mark published failed", "eventId", event.ID, "error", err.Error())
		}
	}
}
