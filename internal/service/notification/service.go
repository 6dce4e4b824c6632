// Package notification turns booking events into messages for customers.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/salon-api/internal/email"
	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/metrics"
)

const (
	channelEmail = "email"

	statusSent    = "sent"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// Dispatcher handles delivered outbox events. It satisfies the outbox
// processor's EventHandler.
type Dispatcher struct {
	accounts repository.AccountRepository
	stores   repository.StoreRepository
	services repository.ServiceRepository
	emailSvc email.Service
	settings model.Settings
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(
	accounts repository.AccountRepository,
	stores repository.StoreRepository,
	services repository.ServiceRepository,
	emailSvc email.Service,
	settings model.Settings,
	log *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		accounts: accounts,
		stores:   stores,
		services: services,
		emailSvc: emailSvc,
		settings: settings,
		log:      log,
		metrics:  metrics,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, event *model.OutboxEvent) error {
	if !d.settings.EmailNotifications || d.emailSvc == nil {
		d.count(statusSkipped)
		return nil
	}

	var ev model.BookingEvent
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		// A malformed payload will never succeed; drop it.
		d.log.Error(err, "Undecodable booking event", "event_id", event.ID.String())
		d.count(statusSkipped)
		return nil
	}

	n, err := d.render(ctx, event.EventType, ev)
	if err != nil {
		return err
	}
	if n == nil {
		d.count(statusSkipped)
		return nil
	}

	if err := d.emailSvc.SendCustom(ctx, n.Recipient, n.Subject, n.Content); err != nil {
		d.count(statusFailed)
		return err
	}
	d.count(statusSent)
	d.log.Debug("Notification sent", "event_type", event.EventType, "booking_id", ev.BookingID.String())
	return nil
}

// render builds the customer message for an event, or nil when the event
// does not concern the customer.
func (d *Dispatcher) render(ctx context.Context, eventType string, ev model.BookingEvent) (*model.Notification, error) {
	customer, err := d.accounts.Get(ctx, ev.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	store, err := d.stores.Get(ctx, ev.StoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	service, err := d.services.Get(ctx, ev.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}

	when := fmt.Sprintf("%s at %s", ev.Date, ev.StartTime)
	n := &model.Notification{Recipient: customer.Email}
	switch eventType {
	case model.EventBookingCreated:
		n.Subject = fmt.Sprintf("Booking received: %s", store.Name)
		n.Content = fmt.Sprintf("Hi %s, your %s at %s on %s is %s.", customer.Name, service.Name, store.Name, when, ev.Status)
	case model.EventBookingCancelled:
		n.Subject = fmt.Sprintf("Booking cancelled: %s", store.Name)
		n.Content = fmt.Sprintf("Hi %s, your %s at %s on %s was cancelled.", customer.Name, service.Name, store.Name, when)
	case model.EventBookingRescheduled:
		n.Subject = fmt.Sprintf("Booking moved: %s", store.Name)
		n.Content = fmt.Sprintf("Hi %s, your %s at %s is now on %s.", customer.Name, service.Name, store.Name, when)
	case model.EventBookingStatusChanged:
		if ev.Status != model.BookingStatusConfirmed {
			return nil, nil
		}
		n.Subject = fmt.Sprintf("Booking confirmed: %s", store.Name)
		n.Content = fmt.Sprintf("Hi %s, %s confirmed your %s on %s.", customer.Name, store.Name, service.Name, when)
	default:
		return nil, nil
	}
	return n, nil
}

func (d *Dispatcher) count(status string) {
	if d.metrics != nil {
		d.metrics.NotificationsSent.WithLabelValues(channelEmail, status).Inc()
	}
}
