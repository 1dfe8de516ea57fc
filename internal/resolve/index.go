package resolve

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/vault"
)

// Snapshot is a derived, read-only view of the whole document collection.
// It is built once from a full directory scan and never mutated; staleness
// within one session is accepted by design.
type Snapshot struct {
	Tasks    []*models.Task
	Projects []*models.Project
	Areas    []*models.Area
}

// Session owns one lazily-built snapshot. Hand a session to each query
// scope; the first relationship query triggers the scan.
type Session struct {
	store  vault.Provider
	layout vault.Layout

	once sync.Once
	snap *Snapshot
	err  error
}

// NewSession creates a session over the given vault.
func NewSession(store vault.Provider, layout vault.Layout) *Session {
	return &Session{store: store, layout: layout}
}

// Snapshot returns the session's snapshot, building it on first use.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.once.Do(func() {
		s.snap, s.err = Build(ctx, s.store, s.layout)
	})
	return s.snap, s.err
}

// Build scans the vault and parses every candidate file. Parsing fans out
// across a bounded worker pool with no shared mutable state: each worker
// writes only its own result slot. Per-file parse failures are dropped, and
// result order is unspecified.
func Build(ctx context.Context, store vault.Provider, layout vault.Layout) (*Snapshot, error) {
	taskFiles, err := store.List(layout.TasksDir, true)
	if err != nil {
		return nil, fmt.Errorf("resolve: scan tasks: %w", err)
	}
	projectFiles, err := store.List(layout.ProjectsDir, false)
	if err != nil {
		return nil, fmt.Errorf("resolve: scan projects: %w", err)
	}
	areaFiles, err := store.List(layout.AreasDir, false)
	if err != nil {
		return nil, fmt.Errorf("resolve: scan areas: %w", err)
	}

	snap := &Snapshot{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	tasks := make([]*models.Task, len(taskFiles))
	for i, fi := range taskFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(fi.Path)
			if err != nil {
				return nil
			}
			if t, err := parser.ParseTask(fi.Path, data); err == nil {
				tasks[i] = t
			}
			return nil
		})
	}
	projects := make([]*models.Project, len(projectFiles))
	for i, fi := range projectFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(fi.Path)
			if err != nil {
				return nil
			}
			if p, err := parser.ParseProject(fi.Path, data); err == nil {
				projects[i] = p
			}
			return nil
		})
	}
	areas := make([]*models.Area, len(areaFiles))
	for i, fi := range areaFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(fi.Path)
			if err != nil {
				return nil
			}
			if a, err := parser.ParseArea(fi.Path, data); err == nil {
				areas[i] = a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t != nil {
			snap.Tasks = append(snap.Tasks, t)
		}
	}
	snap.Projects = filterTyped(projects, "project", func(p *models.Project) string { return p.TypeTag })
	snap.Areas = filterTyped(areas, "area", func(a *models.Area) string { return a.TypeTag })
	return snap, nil
}

// filterTyped applies the container opt-in typing rule: if any document in
// the directory carries an explicit type tag, the listing keeps only
// documents tagged with the expected value; otherwise every parseable
// document stays. Nil slots (dropped parse failures) are skipped.
func filterTyped[T any](docs []*T, want string, tag func(*T) string) []*T {
	var parsed []*T
	tagged := false
	for _, d := range docs {
		if d == nil {
			continue
		}
		parsed = append(parsed, d)
		if tag(d) != "" {
			tagged = true
		}
	}
	if !tagged {
		return parsed
	}
	var out []*T
	for _, d := range parsed {
		if tag(d) == want {
			out = append(out, d)
		}
	}
	return out
}

// TasksInProject returns the tasks whose stored project reference names p.
// Tasks with dangling or ambiguous references are reported as warnings, not
// errors, and never abort the query.
func (s *Snapshot) TasksInProject(p *models.Project) ([]*models.Task, []string) {
	var out []*models.Task
	var warnings []string
	for _, t := range s.Tasks {
		if t.Project == nil {
			continue
		}
		if t.ProjectCount > 1 {
			warnings = append(warnings, fmt.Sprintf("task %s lists %d projects; using the first", t.Path, t.ProjectCount))
		}
		if refMatches(*t.Project, p.Path, p.Title) {
			out = append(out, t)
			continue
		}
		if s.projectFor(*t.Project) == nil {
			warnings = append(warnings, fmt.Sprintf("task %s references unknown project %s", t.Path, t.Project.String()))
		}
	}
	return out, warnings
}

// ProjectsInArea returns the projects whose stored area reference names a.
func (s *Snapshot) ProjectsInArea(a *models.Area) ([]*models.Project, []string) {
	var out []*models.Project
	var warnings []string
	for _, p := range s.Projects {
		if p.Area == nil {
			continue
		}
		if refMatches(*p.Area, a.Path, a.Title) {
			out = append(out, p)
			continue
		}
		if s.areaFor(*p.Area) == nil {
			warnings = append(warnings, fmt.Sprintf("project %s references unknown area %s", p.Path, p.Area.String()))
		}
	}
	return out, warnings
}

// Context is the container context for one task.
type Context struct {
	Project *models.Project
	Area    *models.Area
}

// TaskContext resolves a task's containers by name matching. The area comes
// from the task's own reference when present, else through its project.
func (s *Snapshot) TaskContext(t *models.Task) (Context, []string) {
	var cx Context
	var warnings []string
	if t.Project != nil {
		if t.ProjectCount > 1 {
			warnings = append(warnings, fmt.Sprintf("task %s lists %d projects; using the first", t.Path, t.ProjectCount))
		}
		cx.Project = s.projectFor(*t.Project)
		if cx.Project == nil {
			warnings = append(warnings, fmt.Sprintf("task %s references unknown project %s", t.Path, t.Project.String()))
		}
	}
	switch {
	case t.Area != nil:
		cx.Area = s.areaFor(*t.Area)
		if cx.Area == nil {
			warnings = append(warnings, fmt.Sprintf("task %s references unknown area %s", t.Path, t.Area.String()))
		}
	case cx.Project != nil && cx.Project.Area != nil:
		cx.Area = s.areaFor(*cx.Project.Area)
		if cx.Area == nil {
			warnings = append(warnings, fmt.Sprintf("project %s references unknown area %s", cx.Project.Path, cx.Project.Area.String()))
		}
	}
	return cx, warnings
}

func (s *Snapshot) projectFor(ref models.Reference) *models.Project {
	for _, p := range s.Projects {
		if refMatches(ref, p.Path, p.Title) {
			return p
		}
	}
	return nil
}

func (s *Snapshot) areaFor(ref models.Reference) *models.Area {
	for _, a := range s.Areas {
		if refMatches(ref, a.Path, a.Title) {
			return a
		}
	}
	return nil
}
