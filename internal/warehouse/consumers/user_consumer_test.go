package consumers_test

import (
	"context"
	"testing"

	"github.com/ksp/warehouse/internal/warehouse/consumers"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	upserted []*repository.CachedUser
	patched  map[string][3]*string
	deleted  []string
}

func (f *fakeCache) Upsert(_ context.Context, u *repository.CachedUser) error {
	f.upserted = append(f.upserted, u)
	return nil
}

func (f *fakeCache) Patch(_ context.Context, userID string, firstName, lastName, email *string) error {
	if f.patched == nil {
		f.patched = map[string][3]*string{}
	}
	f.patched[userID] = [3]*string{firstName, lastName, email}
	return nil
}

func (f *fakeCache) Delete(_ context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

func event(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "user-service", "", data)
	require.NoError(t, err)
	return e
}

func TestUserCreated(t *testing.T) {
	cache := &fakeCache{}
	c := consumers.NewUserEventHandlers(cache, logger.Nop())

	err := c.HandleUserCreated(context.Background(), event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID: "u1", Email: "anna@example.com", FirstName: "Anna", LastName: "Nowak",
	}))
	require.NoError(t, err)

	require.Len(t, cache.upserted, 1)
	assert.Equal(t, "Anna", cache.upserted[0].FirstName)
	require.NotNil(t, cache.upserted[0].Email)
	assert.Equal(t, "anna@example.com", *cache.upserted[0].Email)
}

func TestUserUpdatedPatchesOnlyGivenFields(t *testing.T) {
	cache := &fakeCache{}
	c := consumers.NewUserEventHandlers(cache, logger.Nop())

	last := "Kowalska"
	err := c.HandleUserUpdated(context.Background(), event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID: "u1", LastName: &last,
	}))
	require.NoError(t, err)

	fields := cache.patched["u1"]
	assert.Nil(t, fields[0])
	require.NotNil(t, fields[1])
	assert.Equal(t, "Kowalska", *fields[1])
	assert.Nil(t, fields[2])
}

func TestUserDeleted(t *testing.T) {
	cache := &fakeCache{}
	c := consumers.NewUserEventHandlers(cache, logger.Nop())

	require.NoError(t, c.HandleUserDeleted(context.Background(), event(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: "u1"})))
	assert.Equal(t, []string{"u1"}, cache.deleted)
}

func TestMalformedPayload(t *testing.T) {
	c := consumers.NewUserEventHandlers(&fakeCache{}, logger.Nop())
	e := &messaging.Event{Type: messaging.EventUserDeleted, Data: []byte(`"nope"`)}
	assert.Error(t, c.HandleUserDeleted(context.Background(), e))
}
