package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/filter"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/resolve"
	"github.com/starford/dagaz/internal/vault"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	docs   *docservice.Service
	db     *index.DB
	store  vault.Provider
	layout vault.Layout
}

// NewHandler creates a new Handler.
func NewHandler(docs *docservice.Service, db *index.DB, store vault.Provider) *Handler {
	return &Handler{docs: docs, db: db, store: store, layout: docs.Layout()}
}

// docPath extracts the document path from the URL wildcard. Supports encoded
// slashes from OpenAPI clients (e.g. tasks%2Ftodo.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// reindex refreshes the search index for one path, best-effort.
func (h *Handler) reindex(path string) {
	data, err := h.store.Read(path)
	if err != nil {
		return
	}
	if err := index.IndexFile(h.db, h.layout, path, data); err != nil {
		slog.Warn("reindex failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// taskFilterFromQuery builds a filter from the listing query parameters.
// A preset is the starting point; explicit parameters tighten it further.
func taskFilterFromQuery(q url.Values) (filter.TaskFilter, error) {
	var f filter.TaskFilter
	switch preset := q.Get("preset"); preset {
	case "":
	case "overdue", "available", "due-by":
		d, err := models.ParseDateValue(q.Get("as_of"))
		if err != nil {
			return f, fmt.Errorf("preset %s requires a valid as_of date: %w", preset, err)
		}
		switch preset {
		case "overdue":
			f = filter.Overdue(d)
		case "available":
			f = filter.Available(d)
		case "due-by":
			f = filter.DueBy(d)
		}
	case "inbox":
		f = filter.Inbox()
	default:
		return f, fmt.Errorf("unknown preset %q", preset)
	}

	if s := q.Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st, err := models.ParseTaskStatus(strings.TrimSpace(part))
			if err != nil {
				return f, err
			}
			f = f.WithStatus(st)
		}
	}
	if s := q.Get("project"); s != "" {
		f = f.WithProject(models.ParseReference(s))
	}
	if s := q.Get("area"); s != "" {
		f = f.WithArea(models.ParseReference(s))
	}
	if s := q.Get("tag"); s != "" {
		f = f.WithTag(s)
	}
	if s := q.Get("due_by"); s != "" {
		d, err := models.ParseDateValue(s)
		if err != nil {
			return f, err
		}
		f = f.WithDueOnOrBefore(d)
	}
	if s := q.Get("visible_as_of"); s != "" {
		d, err := models.ParseDateValue(s)
		if err != nil {
			return f, err
		}
		f = f.WithVisibleAsOf(d)
	}
	if q.Get("archived") == "true" {
		f = f.WithArchived()
	}
	return f, nil
}

// ListTasks handles GET /tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilterFromQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	tasks, err := h.docs.ListTasks(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = taskDTO(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out, "total": len(out)})
}

// GetTask handles GET /tasks/*.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	t, err := h.docs.GetTask(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskDTO(t))
}

// CreateTask handles POST /tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename and title are required"))
		return
	}

	status := models.StatusInbox
	if req.Status != "" {
		var err error
		if status, err = models.ParseTaskStatus(req.Status); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	due, err := parseDateField("due", req.Due)
	if err != nil {
		writeError(w, err)
		return
	}
	deferUntil, err := parseDateField("defer_until", req.DeferUntil)
	if err != nil {
		writeError(w, err)
		return
	}

	now := models.Now()
	t := &models.Task{
		Title:      req.Title,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
		Due:        due,
		DeferUntil: deferUntil,
		Project:    parseRefField(req.Project),
		Area:       parseRefField(req.Area),
		Tags:       req.Tags,
		Body:       req.Body,
	}
	if t.Project != nil {
		t.ProjectCount = 1
	}

	created, err := h.docs.CreateTask(r.Context(), req.Filename, t)
	if err != nil {
		writeError(w, err)
		return
	}
	h.reindex(created.Path)
	writeJSON(w, http.StatusCreated, taskDTO(created))
}

// UpdateTask handles PUT /tasks/*. Absent request fields are preserved by
// the parse → mutate → write cycle; If-Match enables optimistic concurrency.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	updated, err := h.docs.UpdateTask(r.Context(), p, ifMatch, func(t *models.Task) error {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Status != nil {
			st, err := models.ParseTaskStatus(*req.Status)
			if err != nil {
				return fmt.Errorf("%w: status: %v", apperr.ErrInvalidField, err)
			}
			t.Status = st
		}
		if req.Due != nil {
			d, err := parseDateField("due", *req.Due)
			if err != nil {
				return err
			}
			t.Due = d
		}
		if req.DeferUntil != nil {
			d, err := parseDateField("defer_until", *req.DeferUntil)
			if err != nil {
				return err
			}
			t.DeferUntil = d
		}
		if req.Project != nil {
			t.Project = parseRefField(*req.Project)
			if t.Project != nil {
				t.ProjectCount = 1
			} else {
				t.ProjectCount = 0
			}
		}
		if req.Area != nil {
			t.Area = parseRefField(*req.Area)
		}
		if req.Tags != nil {
			t.Tags = *req.Tags
		}
		if req.Body != nil {
			t.Body = *req.Body
		}
		t.UpdatedAt = models.Now()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.reindex(p)
	writeJSON(w, http.StatusOK, taskDTO(updated))
}

// DeleteDocument handles DELETE /tasks/*, /projects/*, /areas/*.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.docs.DeleteDocument(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	if err := h.db.DeleteDocument(p); err != nil {
		slog.Warn("index delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /complete.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		When string `json:"when,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	when := models.Now()
	if req.When != "" {
		var err error
		if when, err = models.ParseDateValue(req.When); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	t, err := h.docs.CompleteTask(r.Context(), req.Path, when)
	if err != nil {
		writeError(w, err)
		return
	}
	h.reindex(req.Path)
	writeJSON(w, http.StatusOK, taskDTO(t))
}

// ArchiveTask handles POST /archive.
func (h *Handler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	dest, err := h.docs.ArchiveTask(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.db.DeleteDocument(req.Path); err != nil {
		slog.Warn("index delete failed", slog.String("path", req.Path), slog.String("error", err.Error()))
	}
	h.reindex(dest)
	writeJSON(w, http.StatusOK, map[string]string{"path": dest})
}

// ValidateTask handles POST /validate: the explicit business-rule check.
func (h *Handler) ValidateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	t, err := h.docs.GetTask(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	warnings, err := h.docs.ValidateTask(t)
	if err != nil {
		writeError(w, err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.docs.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = projectDTO(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": out, "total": len(out)})
}

// GetProject handles GET /projects/*.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	proj, err := h.docs.GetProject(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectDTO(proj))
}

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename and title are required"))
		return
	}
	due, err := parseDateField("due", req.Due)
	if err != nil {
		writeError(w, err)
		return
	}
	now := models.Now()
	proj := &models.Project{
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
		Due:       due,
		Area:      parseRefField(req.Area),
		TypeTag:   "project",
		Body:      req.Body,
	}
	created, err := h.docs.CreateProject(r.Context(), req.Filename, proj)
	if err != nil {
		writeError(w, err)
		return
	}
	h.reindex(created.Path)
	writeJSON(w, http.StatusCreated, projectDTO(created))
}

// ListAreas handles GET /areas.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.docs.ListAreas(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]AreaDTO, len(areas))
	for i, a := range areas {
		out[i] = areaDTO(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": out, "total": len(out)})
}

// GetArea handles GET /areas/*.
func (h *Handler) GetArea(w http.ResponseWriter, r *http.Request) {
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	a, err := h.docs.GetArea(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, areaDTO(a))
}

// CreateArea handles POST /areas.
func (h *Handler) CreateArea(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename and title are required"))
		return
	}
	now := models.Now()
	a := &models.Area{
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
		TypeTag:   "area",
		Body:      req.Body,
	}
	created, err := h.docs.CreateArea(r.Context(), req.Filename, a)
	if err != nil {
		writeError(w, err)
		return
	}
	h.reindex(created.Path)
	writeJSON(w, http.StatusCreated, areaDTO(created))
}

// ProjectTasks handles GET /relations/project-tasks?path=. Warnings never
// fail the query.
func (h *Handler) ProjectTasks(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	proj, err := h.docs.GetProject(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := resolve.NewSession(h.store, h.layout).Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	tasks, warnings := snap.TasksInProject(proj)
	resp := RelatedTasksResponse{Tasks: make([]TaskDTO, len(tasks)), Warnings: warnings}
	for i, t := range tasks {
		resp.Tasks[i] = taskDTO(t)
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AreaProjects handles GET /relations/area-projects?path=.
func (h *Handler) AreaProjects(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	area, err := h.docs.GetArea(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := resolve.NewSession(h.store, h.layout).Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	projects, warnings := snap.ProjectsInArea(area)
	resp := RelatedProjectsResponse{Projects: make([]ProjectDTO, len(projects)), Warnings: warnings}
	for i, proj := range projects {
		resp.Projects[i] = projectDTO(proj)
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TaskContext handles GET /relations/context?path=.
func (h *Handler) TaskContext(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	t, err := h.docs.GetTask(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := resolve.NewSession(h.store, h.layout).Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	cx, warnings := snap.TaskContext(t)
	resp := ContextResponse{Warnings: warnings}
	if cx.Project != nil {
		dto := projectDTO(cx.Project)
		resp.Project = &dto
	}
	if cx.Area != nil {
		dto := areaDTO(cx.Area)
		resp.Area = &dto
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResolveReference handles GET /resolve?ref=&base=. This is the single
// hard-failing resolution entry point.
func (h *Handler) ResolveReference(w http.ResponseWriter, r *http.Request) {
	refText := r.URL.Query().Get("ref")
	if refText == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'ref' is required"))
		return
	}
	base := r.URL.Query().Get("base")
	if base == "" {
		base = h.layout.ProjectsDir
	}
	p, err := resolve.Resolve(models.ParseReference(refText), base, h.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": p})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.db.Search(q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
