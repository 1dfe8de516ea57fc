package api

import (
	"fmt"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// TaskDTO is the wire representation of a task. Dates use their canonical
// spelling and references their original textual shape.
type TaskDTO struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	Due         *string        `json:"due,omitempty"`
	DeferUntil  *string        `json:"defer_until,omitempty"`
	CompletedAt *string        `json:"completed_at,omitempty"`
	Project     *string        `json:"project,omitempty"`
	Area        *string        `json:"area,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Archived    bool           `json:"archived"`
	Extra       map[string]any `json:"extra,omitempty"`
	Body        string         `json:"body,omitempty"`
}

// ProjectDTO is the wire representation of a project.
type ProjectDTO struct {
	Path      string         `json:"path"`
	Title     string         `json:"title"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Due       *string        `json:"due,omitempty"`
	Area      *string        `json:"area,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	Body      string         `json:"body,omitempty"`
}

// AreaDTO is the wire representation of an area.
type AreaDTO struct {
	Path      string         `json:"path"`
	Title     string         `json:"title"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Extra     map[string]any `json:"extra,omitempty"`
	Body      string         `json:"body,omitempty"`
}

func taskDTO(t *models.Task) TaskDTO {
	return TaskDTO{
		Path:        t.Path,
		Title:       t.Title,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.String(),
		UpdatedAt:   t.UpdatedAt.String(),
		Due:         dateString(t.Due),
		DeferUntil:  dateString(t.DeferUntil),
		CompletedAt: dateString(t.CompletedAt),
		Project:     refString(t.Project),
		Area:        refString(t.Area),
		Tags:        t.Tags,
		Archived:    t.Archived(),
		Extra:       t.Extra,
		Body:        t.Body,
	}
}

func projectDTO(p *models.Project) ProjectDTO {
	return ProjectDTO{
		Path:      p.Path,
		Title:     p.Title,
		CreatedAt: p.CreatedAt.String(),
		UpdatedAt: p.UpdatedAt.String(),
		Due:       dateString(p.Due),
		Area:      refString(p.Area),
		Extra:     p.Extra,
		Body:      p.Body,
	}
}

func areaDTO(a *models.Area) AreaDTO {
	return AreaDTO{
		Path:      a.Path,
		Title:     a.Title,
		CreatedAt: a.CreatedAt.String(),
		UpdatedAt: a.UpdatedAt.String(),
		Extra:     a.Extra,
		Body:      a.Body,
	}
}

func dateString(v *models.DateValue) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func refString(r *models.Reference) *string {
	if r == nil {
		return nil
	}
	s := r.String()
	return &s
}

func parseDateField(name, value string) (*models.DateValue, error) {
	if value == "" {
		return nil, nil
	}
	v, err := models.ParseDateValue(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalidField, name, err)
	}
	return &v, nil
}

func parseRefField(value string) *models.Reference {
	if value == "" {
		return nil
	}
	r := models.ParseReference(value)
	return &r
}

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Filename   string   `json:"filename"`
	Title      string   `json:"title"`
	Status     string   `json:"status,omitempty"`
	Due        string   `json:"due,omitempty"`
	DeferUntil string   `json:"defer_until,omitempty"`
	Project    string   `json:"project,omitempty"`
	Area       string   `json:"area,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Body       string   `json:"body,omitempty"`
}

// UpdateTaskRequest carries optional field changes; absent fields are left
// untouched by the parse → mutate → write cycle.
type UpdateTaskRequest struct {
	Title      *string   `json:"title,omitempty"`
	Status     *string   `json:"status,omitempty"`
	Due        *string   `json:"due,omitempty"`
	DeferUntil *string   `json:"defer_until,omitempty"`
	Project    *string   `json:"project,omitempty"`
	Area       *string   `json:"area,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Body       *string   `json:"body,omitempty"`
}

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Due      string `json:"due,omitempty"`
	Area     string `json:"area,omitempty"`
	Body     string `json:"body,omitempty"`
}

// CreateAreaRequest is the request body for creating an area.
type CreateAreaRequest struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
}

// RelatedTasksResponse carries a relationship query result; warnings report
// dangling or ambiguous references without failing the query.
type RelatedTasksResponse struct {
	Tasks    []TaskDTO `json:"tasks"`
	Warnings []string  `json:"warnings"`
}

// RelatedProjectsResponse mirrors RelatedTasksResponse for projects.
type RelatedProjectsResponse struct {
	Projects []ProjectDTO `json:"projects"`
	Warnings []string     `json:"warnings"`
}

// ContextResponse is the container context of one task.
type ContextResponse struct {
	Project  *ProjectDTO `json:"project,omitempty"`
	Area     *AreaDTO    `json:"area,omitempty"`
	Warnings []string    `json:"warnings"`
}
