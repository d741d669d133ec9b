package events

import "time"

// Query selects events from the log. Zero fields match everything.
type Query struct {
	Types       []string
	AggregateID string
	Since       time.Time
	// Last keeps only the newest matches.
	Last int
}

// Matches reports whether e passes every set field of q.
func (q Query) Matches(e *BaseEvent) bool {
	if q.AggregateID != "" && e.AggregateID_ != q.AggregateID {
		return false
	}
	if !q.Since.IsZero() && !e.Timestamp.After(q.Since) {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// EventStore is the append-only project event log.
type EventStore interface {
	// Append chains event to the log and fills in ID, timestamp and hashes.
	Append(event *BaseEvent) error
	// Read returns the matching events in log order.
	Read(q Query) ([]*BaseEvent, error)
}

// Projection folds events into a read model.
type Projection interface {
	Apply(event *BaseEvent) error
}

// Replay feeds events in order to every projection.
func Replay(events []*BaseEvent, projections ...Projection) error {
	for _, e := range events {
		for _, p := range projections {
			if err := p.Apply(e); err != nil {
				return err
			}
		}
	}
	return nil
}
