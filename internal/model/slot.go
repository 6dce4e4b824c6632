package model

// Slot is a candidate start time; it is computed, never stored.
type Slot struct {
	Date      Date  `json:"date"`
	StartTime Clock `json:"start_time"`
	Available bool  `json:"available"`
}
