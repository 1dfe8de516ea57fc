package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configures the HTTP router.
type RouterOptions struct {
	AuthEnabled bool
	AuthToken   string

	// Events, when non-nil, is mounted at /events for live change
	// notifications.
	Events http.Handler
}

// NewRouter wires all REST endpoints.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.AuthEnabled, opts.AuthToken))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/*", h.GetTask)
			r.Put("/*", h.UpdateTask)
			r.Delete("/*", h.DeleteDocument)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/*", h.GetProject)
			r.Delete("/*", h.DeleteDocument)
		})

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", h.ListAreas)
			r.Post("/", h.CreateArea)
			r.Get("/*", h.GetArea)
			r.Delete("/*", h.DeleteDocument)
		})

		r.Post("/complete", h.CompleteTask)
		r.Post("/archive", h.ArchiveTask)
		r.Post("/validate", h.ValidateTask)

		r.Route("/relations", func(r chi.Router) {
			r.Get("/project-tasks", h.ProjectTasks)
			r.Get("/area-projects", h.AreaProjects)
			r.Get("/context", h.TaskContext)
		})

		r.Get("/resolve", h.ResolveReference)
		r.Get("/search", h.Search)

		if opts.Events != nil {
			r.Handle("/events", opts.Events)
		}
	})

	return r
}
