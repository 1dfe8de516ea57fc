// Package models defines the domain types for Dagaz: task, project, and area
// documents, the format-preserving date and reference values, and the extra
// bag that keeps metadata the typed model does not recognise.
package models

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Kind discriminates the document variants.
type Kind string

const (
	KindTask    Kind = "task"
	KindProject Kind = "project"
	KindArea    Kind = "area"
)

// TaskStatus enumerates the task lifecycle states.
type TaskStatus string

const (
	StatusInbox     TaskStatus = "inbox"
	StatusReady     TaskStatus = "ready"
	StatusStarted   TaskStatus = "started"
	StatusDone      TaskStatus = "done"
	StatusCancelled TaskStatus = "cancelled"
)

// ParseTaskStatus validates a status spelling from disk.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case StatusInbox, StatusReady, StatusStarted, StatusDone, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Extra holds metadata fields the typed model does not recognise. Values are
// the dynamic forms YAML decoding produces: nil, bool, int, float64, string,
// []any, map[string]any. Key order is irrelevant to equality; serialisation
// sorts keys for deterministic output.
type Extra map[string]any

// SortedKeys returns the field names in canonical (lexicographic) order.
func (e Extra) SortedKeys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArchiveDir is the conventional name of the archive subdirectory beneath
// the tasks directory. Archived tasks are detected purely by path-component
// membership, never by a field.
const ArchiveDir = "archive"

// Task is a single actionable document.
type Task struct {
	// Path is the file identity, assigned at read/create time and never
	// serialised into the document text.
	Path string

	Title     string
	Status    TaskStatus
	CreatedAt DateValue
	UpdatedAt DateValue

	Due         *DateValue
	DeferUntil  *DateValue
	CompletedAt *DateValue
	Project     *Reference
	Area        *Reference
	Tags        []string
	TypeTag     string

	// ProjectCount retains how many entries the multi-valued projects field
	// carried on disk. Validation warns when it exceeds one; only the first
	// entry becomes Project.
	ProjectCount int

	Extra Extra
	Body  string
}

// Archived reports whether the task lives under the archive subdirectory.
func (t *Task) Archived() bool { return pathHasComponent(t.Path, ArchiveDir) }

// Project is a container document grouping tasks toward an outcome.
type Project struct {
	Path string

	Title     string
	CreatedAt DateValue
	UpdatedAt DateValue

	Due     *DateValue
	Area    *Reference
	TypeTag string

	Extra Extra
	Body  string
}

// Area is a container document for an ongoing sphere of responsibility.
type Area struct {
	Path string

	Title     string
	CreatedAt DateValue
	UpdatedAt DateValue

	TypeTag string

	Extra Extra
	Body  string
}

// Stem returns the filename of p without its .md extension.
func Stem(p string) string {
	return strings.TrimSuffix(filepath.Base(p), ".md")
}

func pathHasComponent(p, component string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == component {
			return true
		}
	}
	return false
}
