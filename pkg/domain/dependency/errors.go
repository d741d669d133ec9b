package dependency

import (
	"errors"
	"fmt"
	"strings"
)

// Dependency domain errors.
var (
	// ErrCyclicDependency indicates a cycle was detected in the dependency graph.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	// ErrDanglingReference indicates a dependency names an identifier that does not exist.
	ErrDanglingReference = errors.New("dangling dependency reference")
	// ErrDuplicateNode indicates two tasks or milestones share an identifier.
	ErrDuplicateNode = errors.New("duplicate node identifier")
	// ErrEmptyIdentifier indicates a task or milestone without an identifier.
	ErrEmptyIdentifier = errors.New("node identifier must not be empty")
	// ErrInvalidDependencyType indicates an invalid dependency type.
	ErrInvalidDependencyType = errors.New("invalid dependency type")
)

// CircularDependencyError names the nodes of a detected cycle. The sequence
// starts and ends with the same identifier, e.g. [A B C A].
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Cycle, " -> ")
}

// Is allows errors.Is to match ErrCyclicDependency.
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// DanglingReferenceError names an identifier referenced by a dependency that
// is not part of the snapshot.
type DanglingReferenceError struct {
	MissingID    string
	ReferencedBy string
}

func (e *DanglingReferenceError) Error() string {
	if e.ReferencedBy == "" {
		return fmt.Sprintf("dangling reference to %q", e.MissingID)
	}
	return fmt.Sprintf("%s depends on unknown %q", e.ReferencedBy, e.MissingID)
}

// Is allows errors.Is to match ErrDanglingReference.
func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// DuplicateNodeError names an identifier declared more than once.
type DuplicateNodeError struct {
	ID string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("identifier %q is declared more than once", e.ID)
}

// Is allows errors.Is to match ErrDuplicateNode.
func (e *DuplicateNodeError) Is(target error) bool {
	return target == ErrDuplicateNode
}
