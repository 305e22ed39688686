package events

import "time"

// ProviderResult wraps one adapter invocation's output. Created fresh per
// call, never mutated after return, and consumed immediately by the merge
// engine. Failures are reported in-band: Success=false with Error set and an
// empty event list, never as a Go error crossing the adapter boundary.
type ProviderResult struct {
	Success        bool     `json:"success"`
	Events         []*Event `json:"events"`
	Count          int      `json:"count"`
	ProcessingTime int64    `json:"processingTime"` // milliseconds
	Source         Source   `json:"source"`
	Cost           float64  `json:"cost,omitempty"` // USD incurred upstream
	Error          string   `json:"error,omitempty"`
}

// OK builds a successful result from a list of (already sanitized) events.
func OK(source Source, evts []*Event, started time.Time) ProviderResult {
	return ProviderResult{
		Success:        true,
		Events:         evts,
		Count:          len(evts),
		ProcessingTime: time.Since(started).Milliseconds(),
		Source:         source,
	}
}

// Fail builds a failed result. The event list is always non-nil so callers
// can range over it without checking Success first.
func Fail(source Source, err error, started time.Time) ProviderResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ProviderResult{
		Success:        false,
		Events:         []*Event{},
		ProcessingTime: time.Since(started).Milliseconds(),
		Source:         source,
		Error:          msg,
	}
}
