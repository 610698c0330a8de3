package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"market-cache/src/models"
)

// -----------------------------------------------------------------------------

func event(n int) models.MCacheEvent {
	return models.MCacheEvent{Type: models.EventSet, Key: fmt.Sprintf("k-%d", n)}
}

// -----------------------------------------------------------------------------

func TestEventRing_AppendAndGetAll(t *testing.T) {
	r := NewEventRing(4)
	require.Equal(t, 0, r.Size())

	r.Append(event(1))
	r.Append(event(2))
	r.Append(event(3))

	all := r.GetAll()
	require.Len(t, all, 3)
	require.Equal(t, "k-1", all[0].Key)
	require.Equal(t, "k-3", all[2].Key)
}

// -----------------------------------------------------------------------------

func TestEventRing_WrapAroundDropsOldest(t *testing.T) {
	r := NewEventRing(3)

	for i := 1; i <= 5; i++ {
		r.Append(event(i))
	}

	require.Equal(t, 3, r.Size())
	all := r.GetAll()
	require.Equal(t, "k-3", all[0].Key)
	require.Equal(t, "k-4", all[1].Key)
	require.Equal(t, "k-5", all[2].Key)
}

// -----------------------------------------------------------------------------

func TestEventRing_GetLatestSubset(t *testing.T) {
	r := NewEventRing(8)
	for i := 1; i <= 5; i++ {
		r.Append(event(i))
	}

	latest := r.GetLatest(2)
	require.Len(t, latest, 2)
	require.Equal(t, "k-4", latest[0].Key)
	require.Equal(t, "k-5", latest[1].Key)

	// Asking for more than stored caps at size
	require.Len(t, r.GetLatest(100), 5)
	require.Empty(t, r.GetLatest(0))
}

// -----------------------------------------------------------------------------

func TestEventRing_Clear(t *testing.T) {
	r := NewEventRing(3)
	r.Append(event(1))
	r.Clear()

	require.Equal(t, 0, r.Size())
	require.Empty(t, r.GetAll())
	require.Equal(t, 3, r.Capacity())
}
