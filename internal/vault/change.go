package vault

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

// Op is the kind of change reported by a file-change notification.
type Op string

const (
	OpCreated  Op = "created"
	OpModified Op = "modified"
	OpDeleted  Op = "deleted"
)

// Notification is a raw file-change report from the watching collaborator.
// Path may be vault-relative or cleaned to be; classification only looks at
// path components.
type Notification struct {
	Path string
	Op   Op
}

// Event is a classified change to a typed document.
type Event struct {
	Kind models.Kind
	Op   Op
	Path string
}

// Layout names the per-variant directories inside the vault.
type Layout struct {
	TasksDir    string
	ProjectsDir string
	AreasDir    string
}

// Classify maps a raw notification to a typed document event by deciding
// which configured directory contains the path. Paths with the wrong
// extension or outside every configured directory yield ok == false.
func (l Layout) Classify(n Notification) (Event, bool) {
	p := path.Clean(strings.TrimPrefix(filepath.ToSlash(n.Path), "/"))
	if !strings.HasSuffix(p, ".md") {
		return Event{}, false
	}
	top, _, found := strings.Cut(p, "/")
	if !found {
		return Event{}, false
	}
	var kind models.Kind
	switch top {
	case l.TasksDir:
		kind = models.KindTask
	case l.ProjectsDir:
		kind = models.KindProject
	case l.AreasDir:
		kind = models.KindArea
	default:
		return Event{}, false
	}
	return Event{Kind: kind, Op: n.Op, Path: p}, true
}
