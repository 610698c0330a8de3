package utils

import (
	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// EventRing is a fixed-size circular buffer of recent cache-update events.
// It backs the /api/events endpoint and the WebSocket hub's initial state.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type EventRing struct {
	data     []models.MCacheEvent
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewEventRing creates a new ring with fixed capacity
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = 256 // Default reasonable size
	}

	return &EventRing{
		data:     make([]models.MCacheEvent, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds one event, overwriting the oldest when full
func (r *EventRing) Append(event models.MCacheEvent) {
	r.data[r.index] = event
	r.index = (r.index + 1) % r.capacity

	// Update size (never exceeds capacity)
	if r.size < r.capacity {
		r.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent events, oldest first
func (r *EventRing) GetLatest(n int) []models.MCacheEvent {
	if r.size == 0 || n <= 0 {
		return []models.MCacheEvent{}
	}

	count := n
	if n > r.size {
		count = r.size
	}

	result := make([]models.MCacheEvent, count)

	// Latest data is at index-1
	startIdx := (r.index - count + r.capacity) % r.capacity

	for i := 0; i < count; i++ {
		result[i] = r.data[(startIdx+i)%r.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all events in insertion order (oldest to newest)
func (r *EventRing) GetAll() []models.MCacheEvent {
	return r.GetLatest(r.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (r *EventRing) Size() int {
	return r.size
}

// -----------------------------------------------------------------------------

// Capacity returns ring capacity (fixed)
func (r *EventRing) Capacity() int {
	return r.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the ring
func (r *EventRing) Clear() {
	r.index = 0
	r.size = 0
}
