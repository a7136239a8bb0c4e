package api

import (
	"github.com/taskflowhq/taskflow/internal/backup"
	"github.com/taskflowhq/taskflow/internal/index"
	"github.com/taskflowhq/taskflow/internal/models"
)

// SaveWorkspaceRequest is the request body for saving changed files.
type SaveWorkspaceRequest struct {
	Files []*models.File `json:"files" validate:"required"`
}

// CreateFileRequest is the request body for creating a new file.
// Explicit content wins; template is the fallback when content is empty.
type CreateFileRequest struct {
	FilePath string `json:"filePath" example:"tasks/sprint-1.mdc" validate:"required"`
	Template string `json:"template" example:"task" enums:"task,documentation,reference"`
	Content  string `json:"content,omitempty"`
}

// BackupRequest is the request body for an on-demand backup.
type BackupRequest struct {
	FilePath string `json:"filePath" example:"tasks/sprint-1.mdc" validate:"required"`
}

// RestoreRequest is the request body for restoring a backup. An empty
// backupPath restores the newest backup of filePath.
type RestoreRequest struct {
	FilePath   string `json:"filePath" example:"tasks/sprint-1.mdc" validate:"required"`
	BackupPath string `json:"backupPath,omitempty"`
}

// WorkspaceResponse wraps a loaded workspace.
type WorkspaceResponse struct {
	Success   bool              `json:"success" validate:"required"`
	Workspace *models.Workspace `json:"workspace,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// FileResponse wraps a single created file.
type FileResponse struct {
	Success bool         `json:"success" validate:"required"`
	File    *models.File `json:"file,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BackupResponse wraps one backup attempt.
type BackupResponse struct {
	Success bool        `json:"success" validate:"required"`
	Backup  backup.Info `json:"backup"`
	Error   string      `json:"error,omitempty"`
}

// BackupListResponse wraps the backups of one file, newest first.
type BackupListResponse struct {
	Success bool           `json:"success" validate:"required"`
	Backups []backup.Entry `json:"backups" validate:"required"`
}

// FileListResponse wraps paginated index rows.
type FileListResponse struct {
	Files []index.FileRow `json:"files" validate:"required"`
	Total int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
