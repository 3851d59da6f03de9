package consumers

import (
	"context"

	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
)

// UserEventsQueue is the durable queue the warehouse reads user events from.
const UserEventsQueue = "warehouse-service.user-events"

// UserCache is the storage the consumer keeps in sync.
type UserCache interface {
	Upsert(ctx context.Context, u *repository.CachedUser) error
	Patch(ctx context.Context, userID string, firstName, lastName, email *string) error
	Delete(ctx context.Context, userID string) error
}

// UserEventConsumer keeps the local user cache in sync with the user service
type UserEventConsumer struct {
	consumer *messaging.Consumer
	cache    UserCache
	logger   *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, cache UserCache, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, UserEventsQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := NewUserEventHandlers(cache, log)
	c.consumer = consumer

	consumer.RegisterHandler(messaging.EventUserCreated, c.HandleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.HandleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.HandleUserDeleted)

	return c, nil
}

// NewUserEventHandlers returns a consumer that is not attached to a queue.
// Its handlers can be invoked directly.
func NewUserEventHandlers(cache UserCache, log *logger.Logger) *UserEventConsumer {
	return &UserEventConsumer{cache: cache, logger: log.WithComponent("user_consumer")}
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) HandleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().Str("user_id", data.UserID).Msg("received user created event")

	u := &repository.CachedUser{
		UserID:    data.UserID,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	}
	if data.Email != "" {
		u.Email = &data.Email
	}
	return c.cache.Upsert(ctx, u)
}

func (c *UserEventConsumer) HandleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().Str("user_id", data.UserID).Msg("received user updated event")

	return c.cache.Patch(ctx, data.UserID, data.FirstName, data.LastName, data.Email)
}

func (c *UserEventConsumer) HandleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().Str("user_id", data.UserID).Msg("received user deleted event")

	return c.cache.Delete(ctx, data.UserID)
}
