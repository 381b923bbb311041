package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventMalformed  EventType = "malformed"
)

// QueryEvent describes one answered (or rejected) search request.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Canonical string    `json:"canonical,omitempty"`
	Terms     []string  `json:"terms,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Classify returns the event type implied by the outcome fields.
func (e QueryEvent) Classify() EventType {
	switch {
	case e.Error != "":
		return EventMalformed
	case e.TotalHits == 0:
		return EventZeroResult
	default:
		return EventQuery
	}
}
