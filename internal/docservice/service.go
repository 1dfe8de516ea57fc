// Package docservice coordinates vault storage with the parser and writer.
// Every mutation is a parse → mutate → write cycle, so metadata the typed
// model does not recognise survives untouched.
package docservice

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/filter"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/vault"
	"github.com/starford/dagaz/internal/writer"
)

// Service exposes typed document operations over a vault.
type Service struct {
	store  vault.Provider
	layout vault.Layout
}

// NewService creates a document service.
func NewService(store vault.Provider, layout vault.Layout) *Service {
	return &Service{store: store, layout: layout}
}

// Layout returns the vault directory layout the service operates on.
func (s *Service) Layout() vault.Layout { return s.layout }

// GetTask reads and parses one task. Every error surfaces to the caller.
func (s *Service) GetTask(_ context.Context, p string) (*models.Task, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return parser.ParseTask(p, data)
}

// GetProject reads and parses one project.
func (s *Service) GetProject(_ context.Context, p string) (*models.Project, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return parser.ParseProject(p, data)
}

// GetArea reads and parses one area.
func (s *Service) GetArea(_ context.Context, p string) (*models.Area, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return parser.ParseArea(p, data)
}

// checkFilename validates a new document filename.
func checkFilename(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.By(func(v any) error {
			s := v.(string)
			if !strings.HasSuffix(s, ".md") {
				return fmt.Errorf("must end with .md")
			}
			if strings.Contains(s, "/") {
				return fmt.Errorf("must be a bare filename")
			}
			return nil
		}),
	)
}

// CreateTask writes a new task under the tasks directory. A duplicate
// filename is a validation failure.
func (s *Service) CreateTask(_ context.Context, filename string, t *models.Task) (*models.Task, error) {
	if err := checkFilename(filename); err != nil {
		return nil, fmt.Errorf("%w: filename: %v", apperr.ErrValidation, err)
	}
	p := path.Join(s.layout.TasksDir, filename)
	if s.store.Exists(p) {
		return nil, fmt.Errorf("%w: duplicate filename %s", apperr.ErrValidation, filename)
	}
	t.Path = p
	data, err := writer.WriteTask(t)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateProject writes a new project under the projects directory.
func (s *Service) CreateProject(_ context.Context, filename string, p *models.Project) (*models.Project, error) {
	if err := checkFilename(filename); err != nil {
		return nil, fmt.Errorf("%w: filename: %v", apperr.ErrValidation, err)
	}
	rel := path.Join(s.layout.ProjectsDir, filename)
	if s.store.Exists(rel) {
		return nil, fmt.Errorf("%w: duplicate filename %s", apperr.ErrValidation, filename)
	}
	p.Path = rel
	data, err := writer.WriteProject(p)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateArea writes a new area under the areas directory.
func (s *Service) CreateArea(_ context.Context, filename string, a *models.Area) (*models.Area, error) {
	if err := checkFilename(filename); err != nil {
		return nil, fmt.Errorf("%w: filename: %v", apperr.ErrValidation, err)
	}
	rel := path.Join(s.layout.AreasDir, filename)
	if s.store.Exists(rel) {
		return nil, fmt.Errorf("%w: duplicate filename %s", apperr.ErrValidation, filename)
	}
	a.Path = rel
	data, err := writer.WriteArea(a)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateTask runs one parse → mutate → write cycle with optimistic
// concurrency: a non-empty ifMatch must equal the current content checksum.
func (s *Service) UpdateTask(_ context.Context, p, ifMatch string, mutate func(*models.Task) error) (*models.Task, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(data) {
		return nil, fmt.Errorf("%w: checksum mismatch for %s", apperr.ErrConflict, p)
	}
	t, err := parser.ParseTask(p, data)
	if err != nil {
		return nil, err
	}
	if err := mutate(t); err != nil {
		return nil, err
	}
	out, err := writer.WriteTask(t)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(p, out); err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteTask marks a task done as of when.
func (s *Service) CompleteTask(ctx context.Context, p string, when models.DateValue) (*models.Task, error) {
	return s.UpdateTask(ctx, p, "", func(t *models.Task) error {
		t.Status = models.StatusDone
		t.CompletedAt = &when
		t.UpdatedAt = when
		return nil
	})
}

// ArchiveTask moves a task beneath the archive subdirectory and returns its
// new path.
func (s *Service) ArchiveTask(_ context.Context, p string) (string, error) {
	if !s.store.Exists(p) {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
	}
	dest := path.Join(s.layout.TasksDir, models.ArchiveDir, path.Base(p))
	if s.store.Exists(dest) {
		return "", fmt.Errorf("%w: archive already holds %s", apperr.ErrValidation, path.Base(p))
	}
	if err := s.store.Move(p, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// DeleteDocument removes a document file.
func (s *Service) DeleteDocument(_ context.Context, p string) error {
	return s.store.Delete(p)
}

// ListTasks scans the tasks directory and returns the tasks matching f,
// sorted by path. Unparseable files are excluded, never fatal.
func (s *Service) ListTasks(_ context.Context, f filter.TaskFilter) ([]*models.Task, error) {
	files, err := s.store.List(s.layout.TasksDir, f.IncludeArchived)
	if err != nil {
		return nil, err
	}
	var out []*models.Task
	for _, fi := range files {
		data, err := s.store.Read(fi.Path)
		if err != nil {
			continue
		}
		t, err := parser.ParseTask(fi.Path, data)
		if err != nil {
			continue
		}
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ListProjects scans the projects directory, applying the container opt-in
// typing rule.
func (s *Service) ListProjects(_ context.Context) ([]*models.Project, error) {
	files, err := s.store.List(s.layout.ProjectsDir, false)
	if err != nil {
		return nil, err
	}
	var parsed []*models.Project
	for _, fi := range files {
		data, err := s.store.Read(fi.Path)
		if err != nil {
			continue
		}
		if p, err := parser.ParseProject(fi.Path, data); err == nil {
			parsed = append(parsed, p)
		}
	}
	out := typedOnly(parsed, "project", func(p *models.Project) string { return p.TypeTag })
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ListAreas scans the areas directory, applying the container opt-in typing
// rule.
func (s *Service) ListAreas(_ context.Context) ([]*models.Area, error) {
	files, err := s.store.List(s.layout.AreasDir, false)
	if err != nil {
		return nil, err
	}
	var parsed []*models.Area
	for _, fi := range files {
		data, err := s.store.Read(fi.Path)
		if err != nil {
			continue
		}
		if a, err := parser.ParseArea(fi.Path, data); err == nil {
			parsed = append(parsed, a)
		}
	}
	out := typedOnly(parsed, "area", func(a *models.Area) string { return a.TypeTag })
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// typedOnly keeps only documents tagged with want when at least one document
// in the listing carries any type tag; untyped directories pass through.
func typedOnly[T any](docs []T, want string, tag func(T) string) []T {
	tagged := false
	for _, d := range docs {
		if tag(d) != "" {
			tagged = true
			break
		}
	}
	if !tagged {
		return docs
	}
	var out []T
	for _, d := range docs {
		if tag(d) == want {
			out = append(out, d)
		}
	}
	return out
}

// ValidateTask runs the business-rule checks that read/write never run
// implicitly. Rule violations return ErrValidation; data-quality issues
// come back as warnings.
func (s *Service) ValidateTask(t *models.Task) ([]string, error) {
	var warnings []string
	if t.ProjectCount > 1 {
		warnings = append(warnings, fmt.Sprintf("task %s listed %d projects; only the first is used", t.Path, t.ProjectCount))
	}
	if t.Status == models.StatusDone && t.CompletedAt == nil {
		return warnings, fmt.Errorf("%w: %s is done but has no completed-at", apperr.ErrValidation, t.Path)
	}
	if t.CompletedAt != nil && t.Status != models.StatusDone && t.Status != models.StatusCancelled {
		return warnings, fmt.Errorf("%w: %s has completed-at but status %s", apperr.ErrValidation, t.Path, t.Status)
	}
	return warnings, nil
}
