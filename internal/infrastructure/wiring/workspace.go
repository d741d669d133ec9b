package wiring

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/cadence/pkg/storage"
)

// Workspace bundles the infrastructure of one project directory.
type Workspace struct {
	Root        string
	Config      *config.Config
	Logger      *slog.Logger
	Repo        *storage.FilesystemRepository
	Events      *storage.EventLog
	Dispatcher  *events.EventDispatcher
	Bus         *events.Bus
	DeadLetters *webhook.DeadLetterStore
	// Notifier is nil when no webhook is configured.
	Notifier *webhook.Notifier
}

// NewWorkspace opens the workspace under root. A nil cfg means the defaults.
func NewWorkspace(root string, cfg *config.Config, logger *slog.Logger) (*Workspace, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}

	repo := storage.NewFilesystemRepository(root)
	store, err := storage.OpenEventLog(repo.Dir())
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	deadLetters := webhook.NewDeadLetterStore(filepath.Join(repo.Dir(), storage.DeadLetterFile))
	var notifier *webhook.Notifier
	if len(cfg.Webhooks) > 0 {
		notifier = webhook.NewNotifier(cfg.Webhooks, deadLetters, logger)
	}

	dispatcher := events.NewEventDispatcher()
	return &Workspace{
		Root:        root,
		Config:      cfg,
		Logger:      logger,
		Repo:        repo,
		Events:      store,
		Dispatcher:  dispatcher,
		Bus:         events.NewBus(store, dispatcher, logger),
		DeadLetters: deadLetters,
		Notifier:    notifier,
	}, nil
}

// AlertNotifier returns the notifier handlers should alert through, nil when
// no webhook is configured.
func (w *Workspace) AlertNotifier() events.Notifier {
	if w.Notifier == nil {
		return nil
	}
	return w.Notifier
}

// Close waits for pending webhook deliveries.
func (w *Workspace) Close() {
	if w.Notifier != nil {
		w.Notifier.Wait()
	}
}
