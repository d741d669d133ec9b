package dependency

import (
	"fmt"
	"strings"
)

// Type is the relationship between a predecessor and its successor.
type Type string

const (
	// FinishToStart: the successor starts after the predecessor finishes.
	FinishToStart Type = "finish_to_start"
	// StartToStart: the successor starts after the predecessor starts.
	StartToStart Type = "start_to_start"
	// FinishToFinish: the successor finishes after the predecessor finishes.
	FinishToFinish Type = "finish_to_finish"
	// StartToFinish: the successor finishes after the predecessor starts.
	StartToFinish Type = "start_to_finish"
)

// AllTypes returns all valid dependency types.
func AllTypes() []Type {
	return []Type{
		FinishToStart,
		StartToStart,
		FinishToFinish,
		StartToFinish,
	}
}

// IsValid checks if the dependency type is valid.
func (t Type) IsValid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	default:
		return false
	}
}

// OrDefault returns FinishToStart for an unset type.
func (t Type) OrDefault() Type {
	if t == "" {
		return FinishToStart
	}
	return t
}

// Short returns the two-letter abbreviation (FS, SS, FF, SF).
func (t Type) Short() string {
	switch t.OrDefault() {
	case FinishToStart:
		return "FS"
	case StartToStart:
		return "SS"
	case FinishToFinish:
		return "FF"
	case StartToFinish:
		return "SF"
	default:
		return string(t)
	}
}

// ParseType parses a dependency type from its long name, a dashed variant or
// the two-letter abbreviation.
func ParseType(s string) (Type, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	switch norm {
	case "", "fs":
		return FinishToStart, true
	case "ss":
		return StartToStart, true
	case "ff":
		return FinishToFinish, true
	case "sf":
		return StartToFinish, true
	}
	t := Type(norm)
	return t, t.IsValid()
}

// UnmarshalText accepts every form understood by ParseType.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, ok := ParseType(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDependencyType, string(text))
	}
	*t = parsed
	return nil
}
