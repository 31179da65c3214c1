package availability

import "time"

// Status bundles everything a station badge and 24-hour strip need for one render.
type Status struct {
	ResolvedState
	Timeline    []Segment `json:"timeline"`
	ClosesIn    *int      `json:"closes_in_minutes,omitempty"`
	OpensIn     *int      `json:"opens_in_minutes,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Evaluate resolves cfg at now and derives the timeline and ETAs from the same instant.
func Evaluate(cfg AvailabilityConfig, now time.Time) Status {
	segments := Timeline(cfg, now)
	status := Status{
		ResolvedState: Resolve(cfg, now),
		Timeline:      segments,
		EvaluatedAt:   now,
	}
	if m, ok := ClosingETA(segments, now); ok {
		status.ClosesIn = &m
	}
	if m, ok := OpeningETA(segments, now); ok {
		status.OpensIn = &m
	}
	return status
}
