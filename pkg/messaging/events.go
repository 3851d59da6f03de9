package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Consumed from the identity service
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Published by the warehouse service
	EventItemsAdded      = "warehouse.items.added"
	EventItemsRemoved    = "warehouse.items.removed"
	EventItemsMoved      = "warehouse.items.moved"
	EventLocationCleaned = "warehouse.location.cleaned"
	EventExpiryReport    = "warehouse.expiry.report"
)

// Exchange names
const (
	ExchangeUserEvents      = "user.events"
	ExchangeWarehouseEvents = "warehouse.events"
)

// Event is the envelope every message travels in.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User events

// UserCreatedEvent is published by the identity service when a user is created.
type UserCreatedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserUpdatedEvent carries the new values of changed profile fields.
type UserUpdatedEvent struct {
	UserID    string  `json:"user_id"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// Warehouse events

// Cohort identifies a group of interchangeable units in event payloads.
type Cohort struct {
	Name           string  `json:"name"`
	CategoryID     int64   `json:"category_id"`
	Manufacturer   *string `json:"manufacturer,omitempty"`
	ExpirationDate *string `json:"expiration_date,omitempty"`
	Note           *string `json:"note,omitempty"`
}

// ItemsAddedEvent is published once per committed bulk-add chunk.
type ItemsAddedEvent struct {
	ShelfID      int64  `json:"shelf_id"`
	FullLocation string `json:"full_location"`
	Cohort       Cohort `json:"cohort"`
	Quantity     int    `json:"quantity"`
	ActorID      string `json:"actor_id"`
}

// ItemsRemovedEvent is published once per committed removal.
type ItemsRemovedEvent struct {
	ShelfID  int64  `json:"shelf_id"`
	Cohort   Cohort `json:"cohort"`
	Quantity int    `json:"quantity"`
	ActorID  string `json:"actor_id"`
}

// ItemsMovedEvent is published after a batch move commits.
type ItemsMovedEvent struct {
	FromShelfID int64  `json:"from_shelf_id"`
	ToShelfID   int64  `json:"to_shelf_id"`
	Moved       int    `json:"moved"`
	Skipped     int    `json:"skipped"`
	ActorID     string `json:"actor_id"`
}

// LocationCleanedEvent is published after a room, rack or shelf is emptied
// into the fallback location.
type LocationCleanedEvent struct {
	Kind    string `json:"kind"`
	ID      int64  `json:"id"`
	Moved   int    `json:"moved"`
	ActorID string `json:"actor_id"`
}

// ExpiryGroup is one line of the expiry report.
type ExpiryGroup struct {
	Name           string   `json:"name"`
	ExpirationDate string   `json:"expiration_date"`
	Manufacturer   *string  `json:"manufacturer,omitempty"`
	Locations      []string `json:"locations"`
	Count          int      `json:"count"`
	Notes          []string `json:"notes,omitempty"`
}

// ExpiryReportEvent summarises the daily expiry notification.
type ExpiryReportEvent struct {
	WindowDays int           `json:"window_days"`
	Units      int           `json:"units"`
	Groups     []ExpiryGroup `json:"groups"`
}
