package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskflowhq/taskflow/internal/apperr"
	"github.com/taskflowhq/taskflow/internal/backup"
	"github.com/taskflowhq/taskflow/internal/index"
	"github.com/taskflowhq/taskflow/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc *workspace.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *workspace.Service) *Handler {
	return &Handler{svc: svc}
}

// filePath extracts the workspace-relative path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. tasks%2Fplan.mdc).
func filePath(r *http.Request) string {
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

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNoFiles):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotADirectory), errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// LoadWorkspace handles POST /api/workspace/load.
//
//	@Summary		Scan and parse the workspace into the task model
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	WorkspaceResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/load [post]
func (h *Handler) LoadWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Load(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkspaceResponse{Success: true, Workspace: ws})
}

// SaveWorkspace handles POST /api/workspace/save.
//
//	@Summary		Persist every file flagged hasChanges
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveWorkspaceRequest	true	"Files to save"
//	@Success		200		{object}	models.SaveResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/save [post]
func (h *Handler) SaveWorkspace(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SaveWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	result := h.svc.Save(r.Context(), req.Files)
	writeJSON(w, http.StatusOK, result)
}

// Summary handles GET /api/workspace/summary.
//
//	@Summary		Aggregate task counts across the workspace
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	index.Summary
//	@Security		BearerAuth
//	@Router			/workspace/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List indexed files with pagination and filtering
//	@Tags			files
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			status	query		string	false	"Filter by status"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.ListFiles(r.Context(), limit, offset, q.Get("status"), q.Get("sort"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []index.FileRow{}
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: rows, Total: total})
}

// CreateFile handles POST /api/files.
//
//	@Summary		Create a new .mdc file from explicit content or a template
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFileRequest	true	"File to create"
//	@Success		201		{object}	FileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filePath is required"))
		return
	}
	f, err := h.svc.CreateFile(r.Context(), req.FilePath, req.Template, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FileResponse{Success: true, File: f})
}

// DeleteFile handles DELETE /api/files/*.
//
//	@Summary		Delete a workspace file
//	@Tags			files
//	@Param			path	path	string	true	"File path"
//	@Param			backup	query	bool	false	"Create a backup before deleting (default true)"
//	@Success		204		"File deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	// Backups are taken unless the caller explicitly opts out.
	withBackup := true
	if v := r.URL.Query().Get("backup"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			withBackup = parsed
		}
	}
	if err := h.svc.DeleteFile(r.Context(), path, withBackup); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BackupFile handles POST /api/backups.
//
//	@Summary		Create an on-demand backup of one file
//	@Tags			backups
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BackupRequest	true	"File to back up"
//	@Success		200		{object}	BackupResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups [post]
func (h *Handler) BackupFile(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filePath is required"))
		return
	}
	info, err := h.svc.BackupFile(r.Context(), req.FilePath)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupResponse{Success: info.Success, Backup: info, Error: info.Error})
}

// RestoreBackup handles POST /api/backups/restore.
//
//	@Summary		Restore a file from a backup copy
//	@Tags			backups
//	@Accept			json
//	@Param			body	body	RestoreRequest	true	"Backup to restore"
//	@Success		204		"File restored"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups/restore [post]
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filePath is required"))
		return
	}
	if err := h.svc.RestoreBackup(r.Context(), req.FilePath, req.BackupPath); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBackups handles GET /api/backups.
//
//	@Summary		List backups of one file, newest first
//	@Tags			backups
//	@Produce		json
//	@Param			filePath	query		string	true	"File path"
//	@Success		200			{object}	BackupListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups [get]
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("filePath")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'filePath' is required"))
		return
	}
	entries, err := h.svc.ListBackups(r.Context(), path)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []backup.Entry{}
	}
	writeJSON(w, http.StatusOK, BackupListResponse{Success: true, Backups: entries})
}

// BackupStats handles GET /api/backups/stats.
//
//	@Summary		Aggregate numbers for the workspace backup directory
//	@Tags			backups
//	@Produce		json
//	@Success		200	{object}	backup.Stats
//	@Security		BearerAuth
//	@Router			/backups/stats [get]
func (h *Handler) BackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.BackupStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CleanBackups handles DELETE /api/backups.
//
//	@Summary		Delete every backup under the workspace root
//	@Tags			backups
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Security		BearerAuth
//	@Router			/backups [delete]
func (h *Handler) CleanBackups(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.CleanBackups(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across task files
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
