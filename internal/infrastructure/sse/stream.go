// Package sse streams recorded cadence events to browsers with Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

const (
	clientBuffer  = 64
	pingInterval  = 25 * time.Second
	reconnectHint = 3 * time.Second
)

// Stream fans dispatched events out to connected clients. Clients narrow
// the feed with ?types=a,b and ?aggregate=id.
type Stream struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	backlog events.EventStore
	ping    time.Duration
}

type subscriber struct {
	q  events.Query
	ch chan *events.BaseEvent
}

// NewStream creates a stream. When backlog is set, a client that
// reconnects with Last-Event-ID first receives the events it missed.
func NewStream(backlog events.EventStore) *Stream {
	return &Stream{
		subs:    make(map[*subscriber]struct{}),
		backlog: backlog,
		ping:    pingInterval,
	}
}

// Registration feeds every dispatched event into the stream.
func (s *Stream) Registration() events.HandlerRegistration {
	return events.HandlerRegistration{
		Name:       "EventStream",
		EventTypes: []string{events.Wildcard},
		Handler: func(_ context.Context, event events.DomainEvent) error {
			if rec, ok := event.(events.Recorder); ok {
				s.Broadcast(rec.Record())
			}
			return nil
		},
	}
}

// Broadcast queues e for every client whose filter matches. A client with
// a full buffer misses the event.
func (s *Stream) Broadcast(e *events.BaseEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs {
		if !sub.q.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := &subscriber{q: queryFrom(r), ch: make(chan *events.BaseEvent, clientBuffer)}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", reconnectHint.Milliseconds())

	// Subscribed before the replay, so live copies of replayed events are skipped.
	replayed := make(map[string]bool)
	for _, e := range s.missed(sub.q, r.Header.Get("Last-Event-ID")) {
		if writeEvent(w, e) != nil {
			return
		}
		replayed[e.ID] = true
	}
	flusher.Flush()

	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case e := <-sub.ch:
			if replayed[e.ID] {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

// missed returns the matching events recorded after lastID. An unknown ID
// replays nothing.
func (s *Stream) missed(q events.Query, lastID string) []*events.BaseEvent {
	if s.backlog == nil || lastID == "" {
		return nil
	}
	log, err := s.backlog.Read(events.Query{Types: q.Types, AggregateID: q.AggregateID})
	if err != nil {
		return nil
	}
	for i, e := range log {
		if e.ID == lastID {
			return log[i+1:]
		}
	}
	return nil
}

func queryFrom(r *http.Request) events.Query {
	params := r.URL.Query()
	q := events.Query{AggregateID: params.Get("aggregate")}
	for _, t := range strings.Split(params.Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			q.Types = append(q.Types, t)
		}
	}
	return q
}

// writeEvent skips events that do not encode.
func writeEvent(w io.Writer, e *events.BaseEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
	return err
}
