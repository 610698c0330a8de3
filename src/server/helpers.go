package server

import "market-cache/src/models"

// -----------------------------------------------------------------------------

// filterEvents keeps events whose symbol is in the set; an empty set keeps
// everything.
func filterEvents(events []models.MCacheEvent, symbols map[string]struct{}) []models.MCacheEvent {
	if len(symbols) == 0 {
		return events
	}

	filtered := make([]models.MCacheEvent, 0, len(events))
	for _, ev := range events {
		if _, ok := symbols[ev.Symbol]; ok {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}
