package events_test

import (
	"context"
	"testing"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilPublisherIsSilent(t *testing.T) {
	var p *events.WarehousePublisher
	assert.NotPanics(t, func() {
		p.ItemsMoved(context.Background(), 1, 2, 3, 0, "u1")
	})
}

func TestItemsAddedPayload(t *testing.T) {
	sink := testutil.NewMockPublisher()
	p := events.NewWithSink(sink, logger.Nop())

	exp := domain.NewDate(2026, 3, 1)
	key := domain.CohortKey{Name: "Bandaż", CategoryID: 4, ExpirationDate: &exp}
	p.ItemsAdded(context.Background(), 9, "Magazyn.A.1", key, 25, "u1")

	published := sink.Events(messaging.EventItemsAdded)
	require.Len(t, published, 1)

	data, ok := published[0].Payload.(messaging.ItemsAddedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(9), data.ShelfID)
	assert.Equal(t, 25, data.Quantity)
	require.NotNil(t, data.Cohort.ExpirationDate)
	assert.Equal(t, "2026-03-01", *data.Cohort.ExpirationDate)
	assert.Nil(t, data.Cohort.Manufacturer)
}
