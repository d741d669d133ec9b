package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/google/uuid"
)

const maxEventLine = 1 << 20

// EventLog is the hash-chained history in .cadence/events.jsonl. Each line
// is one event whose PrevHash is the Hash of the line before it.
type EventLog struct {
	mu   sync.Mutex
	dir  string
	path string
	head string
	now  func() time.Time
}

// OpenEventLog opens the log in dir. The directory is created on the first
// append so an uninitialized project stays untouched.
func OpenEventLog(dir string) (*EventLog, error) {
	l := &EventLog{dir: dir, path: filepath.Join(dir, EventsFile), now: time.Now}
	err := l.scan(func(_ int, e *events.BaseEvent) error {
		l.head = e.Hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the log file location.
func (l *EventLog) Path() string { return l.path }

// Append implements events.EventStore.
func (l *EventLog) Append(e *events.BaseEvent) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.PrevHash = l.head
	e.Hash = e.CalculateHash()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	if err := os.MkdirAll(l.dir, 0750); err != nil {
		return fmt.Errorf("create %s: %w", l.dir, err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close event log: %w", cerr)
		}
	}()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}

	l.head = e.Hash
	return nil
}

// Read implements events.EventStore.
func (l *EventLog) Read(q events.Query) ([]*events.BaseEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*events.BaseEvent
	err := l.scan(func(_ int, e *events.BaseEvent) error {
		if q.Matches(e) {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if q.Last > 0 && len(out) > q.Last {
		out = out[len(out)-q.Last:]
	}
	return out, nil
}

// VerifyIntegrity re-computes the chain and describes every line that was
// edited, removed or reordered. An empty result means the log is intact.
func (l *EventLog) VerifyIntegrity() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var violations []string
	prev := ""
	err := l.scan(func(line int, e *events.BaseEvent) error {
		if e.PrevHash != prev {
			violations = append(violations, fmt.Sprintf("line %d (%s %s): chain broken", line, e.Type, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("line %d (%s %s): content does not match its hash", line, e.Type, e.ID))
		}
		prev = e.Hash
		return nil
	})
	return violations, err
}

// scan decodes the log line by line. A missing file is an empty log.
func (l *EventLog) scan(fn func(line int, e *events.BaseEvent) error) error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e events.BaseEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("event log line %d: %w", line, err)
		}
		if err := fn(line, &e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	return nil
}

var _ events.EventStore = (*EventLog)(nil)
