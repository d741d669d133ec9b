package webhook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

// DeadLetterStore keeps failed webhook deliveries, one JSON object per line.
type DeadLetterStore struct {
	mu   sync.Mutex
	path string
}

func NewDeadLetterStore(path string) *DeadLetterStore {
	return &DeadLetterStore{path: path}
}

// Path returns the backing file.
func (s *DeadLetterStore) Path() string {
	return s.path
}

// Append records a failed delivery.
func (s *DeadLetterStore) Append(dl events.DeadLetter) error {
	line, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open dead letters: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write dead letter: %w", err)
	}
	return f.Close()
}

// ReadAll returns the stored deliveries, oldest first. Undecodable lines
// are skipped.
func (s *DeadLetterStore) ReadAll() ([]events.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Drain offers every stored delivery to resend and keeps only the ones it
// rejects. It returns how many were resent.
func (s *DeadLetterStore) Drain(resend func(events.DeadLetter) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters, err := s.load()
	if err != nil || len(letters) == 0 {
		return 0, err
	}

	var kept []events.DeadLetter
	for _, dl := range letters {
		if err := resend(dl); err != nil {
			dl.Error = err.Error()
			dl.Attempts++
			kept = append(kept, dl)
		}
	}
	return len(letters) - len(kept), s.rewrite(kept)
}

// Clear removes all stored deliveries.
func (s *DeadLetterStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(nil)
}

func (s *DeadLetterStore) load() ([]events.DeadLetter, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []events.DeadLetter
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, 4<<20)
	for sc.Scan() {
		var dl events.DeadLetter
		if json.Unmarshal(sc.Bytes(), &dl) == nil {
			out = append(out, dl)
		}
	}
	return out, sc.Err()
}

// rewrite replaces the file with letters. An empty set removes it.
func (s *DeadLetterStore) rewrite(letters []events.DeadLetter) error {
	if len(letters) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, dl := range letters {
		if err := enc.Encode(dl); err != nil {
			return fmt.Errorf("encode dead letter: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".deadletters-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
