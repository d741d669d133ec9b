package watch

import (
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/cadence/pkg/storage"
)

// Filter reports whether a changed path matters. A nil Filter passes
// everything.
type Filter func(path string) bool

// ProjectFiles passes the files a schedule is computed from, by exact base
// name. Editor swap and backup files and the logs cadence writes itself
// never match, so recording a run does not trigger another one.
func ProjectFiles() Filter {
	inputs := map[string]bool{
		storage.ProjectFile:   true,
		storage.CalendarsFile: true,
		storage.ResourcesFile: true,
		storage.RatesFile:     true,
	}
	return func(path string) bool { return inputs[filepath.Base(path)] }
}

// batch coalesces changes by path. A later change to a path replaces the
// earlier one.
type batch map[string]ChangeEvent

func (b batch) add(e ChangeEvent) { b[e.Path] = e }

// drain empties the batch and returns its changes ordered by path.
func (b batch) drain() []ChangeEvent {
	out := make([]ChangeEvent, 0, len(b))
	for path, e := range b {
		out = append(out, e)
		delete(b, path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
