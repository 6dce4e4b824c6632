package worker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/messaging"
	"github.com/jwalitptl/salon-api/pkg/metrics"
)

// EventHandler reacts to a delivered outbox event, e.g. by notifying the
// customer.
type EventHandler interface {
	Handle(ctx context.Context, event *model.OutboxEvent) error
}

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of deliveries tried before an event is
	// parked as FAILED.
	RetryAttempts int
	// RetryDelay is the first back-off; it doubles on every retry.
	RetryDelay time.Duration
	// ClaimTimeout is how long a claimed batch stays hidden from other
	// processors. Defaults to five minutes.
	ClaimTimeout time.Duration
	Channel      string
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	handler EventHandler
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewOutboxProcessor wires the processor. broker and handler may be nil when
// the corresponding sink is disabled.
func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	handler EventHandler,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.ClaimTimeout <= 0 {
		config.ClaimTimeout = 5 * time.Minute
	}
	if config.Channel == "" {
		config.Channel = "bookings"
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		handler: handler,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessOnce delivers one batch of due events.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPendingEvents(ctx, p.config.BatchSize, p.now().Add(p.config.ClaimTimeout))
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType,
				"retry_count", event.RetryCount)
		}
	}
	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.deliver(ctx, event)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to update event status: %w", err)
		}
		return nil
	}

	var retryAt *time.Time
	if event.RetryCount+1 < p.config.RetryAttempts {
		at := p.now().Add(p.backoff(event.RetryCount))
		retryAt = &at
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	} else {
		p.metrics.OutboxEventsFailed.Inc()
	}
	if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), retryAt); updateErr != nil {
		p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
	}
	return err
}

func (p *OutboxProcessor) deliver(ctx context.Context, event *model.OutboxEvent) error {
	if p.broker != nil {
		msg := messaging.Message{
			Type:        event.EventType,
			AggregateID: event.AggregateID.String(),
			Payload:     event.Payload,
		}
		if err := p.broker.Publish(ctx, p.config.Channel, msg); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	if p.handler != nil {
		if err := p.handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("handle: %w", err)
		}
	}
	return nil
}

func (p *OutboxProcessor) backoff(retries int) time.Duration {
	return time.Duration(float64(p.config.RetryDelay) * math.Pow(2, float64(retries)))
}
