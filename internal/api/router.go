package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskflowhq/taskflow/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *workspace.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace load/save.
	r.Post("/workspace/load", h.LoadWorkspace)
	r.Post("/workspace/save", h.SaveWorkspace)
	r.Get("/workspace/summary", h.Summary)

	// File management.
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Delete("/files/*", h.DeleteFile)

	// Backups.
	r.Post("/backups", h.BackupFile)
	r.Post("/backups/restore", h.RestoreBackup)
	r.Get("/backups", h.ListBackups)
	r.Get("/backups/stats", h.BackupStats)
	r.Delete("/backups", h.CleanBackups)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
