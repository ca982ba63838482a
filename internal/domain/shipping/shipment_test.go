package shipping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipment_Advance(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	s := &Shipment{Status: StatusConfirmed}

	assert.False(t, s.Advance(StatusConfirmed, "", now))
	assert.False(t, s.Advance("teleported", "", now))

	assert.True(t, s.Advance(StatusInTransit, "at hub", now))
	assert.Nil(t, s.DeliveredAt)

	assert.True(t, s.Advance(StatusDelivered, "", now))
	require.NotNil(t, s.DeliveredAt)
	assert.Equal(t, now, *s.DeliveredAt)
	assert.True(t, s.Status.Final())
}
