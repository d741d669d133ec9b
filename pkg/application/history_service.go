package application

import (
	"errors"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

// ErrVerifyUnsupported is returned when the event store cannot check its
// own integrity.
var ErrVerifyUnsupported = errors.New("event store does not support integrity checks")

// IntegrityVerifier is implemented by stores that chain event hashes.
type IntegrityVerifier interface {
	VerifyIntegrity() ([]string, error)
}

// HistoryService replays the event log into read models.
type HistoryService struct {
	store events.EventStore
}

func NewHistoryService(store events.EventStore) *HistoryService {
	return &HistoryService{store: store}
}

// Runs returns up to limit recorded schedule runs, oldest first, and the
// trend between the last two.
func (s *HistoryService) Runs(limit int) ([]*events.ScheduleComputed, events.RunTrend, error) {
	h, err := s.runHistory(events.Query{})
	if err != nil {
		return nil, events.RunTrend{}, err
	}
	return h.Runs(limit), h.Trend(), nil
}

// LatestRun returns the most recent recorded run, nil when there is none.
func (s *HistoryService) LatestRun() (*events.ScheduleComputed, error) {
	h, err := s.runHistory(events.Query{Last: 1})
	if err != nil {
		return nil, err
	}
	return h.Latest(), nil
}

func (s *HistoryService) runHistory(q events.Query) (*events.RunHistory, error) {
	q.Types = []string{events.EventTypeScheduleComputed}
	log, err := s.store.Read(q)
	if err != nil {
		return nil, err
	}
	h := events.NewRunHistory()
	return h, events.Replay(log, h)
}

// TaskProgress projects the status and progress of every task in the log.
func (s *HistoryService) TaskProgress() ([]events.TaskProgress, error) {
	log, err := s.store.Read(events.Query{Types: []string{
		events.EventTypeTaskAdded,
		events.EventTypeProgressRecorded,
		events.EventTypeTaskTransitioned,
	}})
	if err != nil {
		return nil, err
	}
	a := events.NewTaskActivity()
	if err := events.Replay(log, a); err != nil {
		return nil, err
	}
	return a.All(), nil
}

// Verify checks the hash chain of the log.
func (s *HistoryService) Verify() ([]string, error) {
	v, ok := s.store.(IntegrityVerifier)
	if !ok {
		return nil, ErrVerifyUnsupported
	}
	return v.VerifyIntegrity()
}
