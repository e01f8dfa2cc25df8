package domain

import "time"

// HistoryEntry is a persisted reading the user can revisit later.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Reading      Reading   `json:"reading"`
	Image        string    `json:"image"`
	DominantHand Hand      `json:"dominantHand,omitempty"`
}
