// Package watch re-triggers work when the project files change on disk.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change types reported in ChangeEvent.
const (
	ChangeCreate = "create"
	ChangeWrite  = "write"
	ChangeRemove = "remove"
	ChangeRename = "rename"
)

// DefaultDebounce is used when no debounce window is configured.
const DefaultDebounce = 500 * time.Millisecond

// ChangeEvent is one changed file.
type ChangeEvent struct {
	Path       string
	ChangeType string
}

// Watcher reports debounced batches of changes to the files of one project
// directory.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	filter   Filter
	debounce time.Duration
}

// Open starts watching dir. Editors often save through a rename, so the
// directory is watched instead of the individual files. A nil filter passes
// every path.
func Open(dir string, filter Filter, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{fsw: fsw, dir: dir, filter: filter, debounce: debounce}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run calls onChange with each batch of changes once the debounce window
// passes without further changes, until ctx is done or the watcher fails.
// onChange runs on Run's goroutine, so batches never overlap. The watcher
// is closed on return.
func (w *Watcher) Run(ctx context.Context, onChange func([]ChangeEvent)) error {
	defer w.fsw.Close()

	pending := batch{}
	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-quiet.C:
			if len(pending) > 0 {
				onChange(pending.drain())
			}
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			change, ok := classify(ev.Op)
			if !ok || (w.filter != nil && !w.filter(ev.Name)) {
				continue
			}
			pending.add(ChangeEvent{Path: ev.Name, ChangeType: change})
			quiet.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
	}
}

// Close stops a watcher that was never run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// classify maps an fsnotify op to a change type. Permission-only changes
// do not affect a schedule.
func classify(op fsnotify.Op) (string, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate, true
	case op.Has(fsnotify.Write):
		return ChangeWrite, true
	case op.Has(fsnotify.Remove):
		return ChangeRemove, true
	case op.Has(fsnotify.Rename):
		return ChangeRename, true
	}
	return "", false
}
