// Package app wires the outbox pipeline shared by cmd/api and cmd/worker.
package app

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/salon-api/internal/config"
	"github.com/jwalitptl/salon-api/internal/email"
	"github.com/jwalitptl/salon-api/internal/repository/sqlstore"
	"github.com/jwalitptl/salon-api/internal/service/notification"
	cleanup "github.com/jwalitptl/salon-api/internal/worker"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/messaging"
	"github.com/jwalitptl/salon-api/pkg/messaging/redis"
	"github.com/jwalitptl/salon-api/pkg/metrics"
	"github.com/jwalitptl/salon-api/pkg/worker"
)

// Outbox delivers booking events and prunes delivered ones.
type Outbox struct {
	Processor *worker.OutboxProcessor
	Cleanup   *cleanup.OutboxCleanupWorker
	broker    messaging.Broker
	wg        sync.WaitGroup
}

// NewOutbox builds the processor from cfg. The Redis broker is optional:
// without redis.url events are only handed to the notification dispatcher.
func NewOutbox(cfg *config.Config, db *sqlx.DB, log *logger.Logger, m *metrics.Metrics) (*Outbox, error) {
	base := sqlstore.NewBaseRepository(db)
	outboxRepo := sqlstore.NewOutboxRepository(base)

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		b, err := redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log.Zerolog())
		if err != nil {
			return nil, err
		}
		broker = b
	}

	var emailSvc email.Service
	if cfg.Email.Enabled {
		emailSvc = email.NewSMTPService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	}

	dispatcher := notification.NewDispatcher(
		sqlstore.NewAccountRepository(base),
		sqlstore.NewStoreRepository(base),
		sqlstore.NewServiceRepository(base),
		emailSvc,
		cfg.Settings,
		log.With("component", "notification"),
		m,
	)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		dispatcher,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			ClaimTimeout:  cfg.Outbox.ClaimTimeout,
			Channel:       cfg.Redis.Channel,
		},
		log.With("component", "outbox_processor"),
		m,
	)

	return &Outbox{
		Processor: processor,
		Cleanup: cleanup.NewOutboxCleanupWorker(
			outboxRepo,
			cfg.Outbox.Retention,
			cfg.Outbox.CleanupInterval,
			log.With("component", "outbox_cleanup"),
			m,
		),
		broker: broker,
	}, nil
}

// Start runs both workers until ctx is done.
func (o *Outbox) Start(ctx context.Context) {
	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.Processor.Start(ctx)
	}()
	go func() {
		defer o.wg.Done()
		o.Cleanup.Start(ctx)
	}()
}

// Wait blocks until the workers stopped, then closes the broker.
func (o *Outbox) Wait() error {
	o.wg.Wait()
	if o.broker != nil {
		return o.broker.Close()
	}
	return nil
}
