package model

import "time"

// RefreshState is the scheduler-owned view of the latest refresh cycle.
// Records is replaced wholesale on success and never mutated in place.
type RefreshState struct {
	Records     []ProcessedRecord
	LastUpdated time.Time
	IsLoading   bool
	LastError   error
}

// Stale reports whether the last cycle failed, meaning Records may be out of date.
func (s RefreshState) Stale() bool {
	return s.LastError != nil
}
