package events

import (
	"context"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
)

// Sink is the transport events are handed to. *messaging.Publisher
// satisfies it.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// WarehousePublisher publishes warehouse events. A nil publisher drops
// everything, which is how the service runs with RabbitMQ disabled.
type WarehousePublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewWarehousePublisher declares the warehouse exchange and returns a
// publisher on it.
func NewWarehousePublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*WarehousePublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWarehouseEvents, "warehouse-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithSink(publisher, log), nil
}

// NewWithSink wraps an arbitrary sink.
func NewWithSink(sink Sink, log *logger.Logger) *WarehousePublisher {
	return &WarehousePublisher{sink: sink, logger: log.WithComponent("events")}
}

// CohortOf converts a cohort key to its event form.
func CohortOf(key domain.CohortKey) messaging.Cohort {
	c := messaging.Cohort{
		Name:         key.Name,
		CategoryID:   key.CategoryID,
		Manufacturer: key.Manufacturer,
		Note:         key.Note,
	}
	if key.ExpirationDate != nil {
		s := key.ExpirationDate.String()
		c.ExpirationDate = &s
	}
	return c
}

// ItemsAdded publishes one committed bulk-add chunk.
func (p *WarehousePublisher) ItemsAdded(ctx context.Context, shelfID int64, fullLocation string, key domain.CohortKey, quantity int, actorID string) {
	p.publish(ctx, messaging.EventItemsAdded, messaging.ItemsAddedEvent{
		ShelfID:      shelfID,
		FullLocation: fullLocation,
		Cohort:       CohortOf(key),
		Quantity:     quantity,
		ActorID:      actorID,
	})
}

// ItemsRemoved publishes a committed removal.
func (p *WarehousePublisher) ItemsRemoved(ctx context.Context, shelfID int64, key domain.CohortKey, quantity int, actorID string) {
	p.publish(ctx, messaging.EventItemsRemoved, messaging.ItemsRemovedEvent{
		ShelfID:  shelfID,
		Cohort:   CohortOf(key),
		Quantity: quantity,
		ActorID:  actorID,
	})
}

// ItemsMoved publishes a committed batch move.
func (p *WarehousePublisher) ItemsMoved(ctx context.Context, fromShelfID, toShelfID int64, moved, skipped int, actorID string) {
	p.publish(ctx, messaging.EventItemsMoved, messaging.ItemsMovedEvent{
		FromShelfID: fromShelfID,
		ToShelfID:   toShelfID,
		Moved:       moved,
		Skipped:     skipped,
		ActorID:     actorID,
	})
}

// LocationCleaned publishes a committed clean.
func (p *WarehousePublisher) LocationCleaned(ctx context.Context, kind domain.LocationKind, id int64, moved int, actorID string) {
	p.publish(ctx, messaging.EventLocationCleaned, messaging.LocationCleanedEvent{
		Kind:    string(kind),
		ID:      id,
		Moved:   moved,
		ActorID: actorID,
	})
}

// ExpiryReport publishes the summary of a sent expiry notification.
func (p *WarehousePublisher) ExpiryReport(ctx context.Context, report messaging.ExpiryReportEvent) {
	p.publish(ctx, messaging.EventExpiryReport, report)
}

func (p *WarehousePublisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
