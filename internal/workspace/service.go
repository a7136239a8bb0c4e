// Package workspace coordinates storage, parsing, serialization,
// backups, and the index into the load/save/create/delete operations
// exposed to every transport.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/apperr"
	"github.com/taskflowhq/taskflow/internal/backup"
	"github.com/taskflowhq/taskflow/internal/frontmatter"
	"github.com/taskflowhq/taskflow/internal/index"
	"github.com/taskflowhq/taskflow/internal/models"
	"github.com/taskflowhq/taskflow/internal/parser"
	"github.com/taskflowhq/taskflow/internal/serializer"
	"github.com/taskflowhq/taskflow/internal/storage"
)

// Notify is called after a mutation so transports can push change
// events. kind is one of "created", "updated", "deleted".
type Notify func(kind, path string)

// Service coordinates workspace operations over one root directory.
type Service struct {
	store      storage.Provider
	db         index.FileIndex
	backups    *backup.Manager
	backupOpts backup.Options
	logger     *slog.Logger
	notify     Notify
}

// NewService creates a workspace service. notify may be nil.
func NewService(store storage.Provider, db index.FileIndex, backups *backup.Manager, backupOpts backup.Options, logger *slog.Logger, notify Notify) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		db:         db,
		backups:    backups,
		backupOpts: backupOpts,
		logger:     logger,
		notify:     notify,
	}
}

// Load scans the workspace root and parses every .mdc file into the
// task model. Per-file failures land in Workspace.ScanErrors; the load
// itself only fails when the root is unusable or holds no files at all.
func (s *Service) Load(_ context.Context) (*models.Workspace, error) {
	root := s.store.Root()

	info, err := s.store.Stat("")
	if err != nil {
		return nil, fmt.Errorf("workspace: load %s: %w", root, apperr.ErrNotFound)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: load %s: %w", root, apperr.ErrNotADirectory)
	}

	scan, err := s.store.Scan("")
	if err != nil {
		return nil, err
	}
	if scan.TotalFiles == 0 {
		return nil, fmt.Errorf("workspace: load %s: %w", root, apperr.ErrNoFiles)
	}

	ws := &models.Workspace{
		ProjectPath: root,
		Files:       make([]*models.File, 0, scan.TotalFiles),
		LoadedAt:    time.Now(),
		ScanErrors:  append([]string(nil), scan.Errors...),
	}

	for _, entry := range scan.Files {
		f, err := parser.ParseFile(entry.Path, filepath.Base(entry.Path), entry.Content, entry.ModTime)
		if err != nil {
			s.logger.Warn("workspace: parse failed",
				slog.String("path", entry.Path), slog.String("error", err.Error()))
			ws.ScanErrors = append(ws.ScanErrors, fmt.Sprintf("failed to parse %s: %v", entry.Path, err))
			continue
		}
		ws.Files = append(ws.Files, f)
	}

	s.logger.Info("workspace: loaded",
		slog.String("root", root),
		slog.Int("files", len(ws.Files)),
		slog.Int("errors", len(ws.ScanErrors)))
	return ws, nil
}

// Save persists every file flagged hasChanges: backup first, then
// serialize, validate, and write each one independently. A failed file
// never blocks the others; the per-file outcomes come back in input
// order.
func (s *Service) Save(_ context.Context, files []*models.File) models.SaveResult {
	var changed []*models.File
	for _, f := range files {
		if f.HasChanges {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return models.SaveResult{
			Success: true,
			Results: []models.FileSaveResult{},
			Message: "No changes to save",
		}
	}

	for _, info := range s.backups.CreateAll(changed, s.backupOpts, s.store.Abs) {
		if !info.Success {
			s.logger.Warn("workspace: backup failed",
				slog.String("path", info.OriginalPath), slog.String("error", info.Error))
		}
	}

	results := make([]models.FileSaveResult, 0, len(changed))
	saved := 0
	for _, f := range changed {
		res := s.saveOne(f)
		if res.Success {
			saved++
		}
		results = append(results, res)
	}

	out := models.SaveResult{Results: results}
	switch {
	case saved == len(changed):
		out.Success = true
		out.Message = fmt.Sprintf("Successfully saved %d file(s)", saved)
	default:
		out.Message = fmt.Sprintf("Saved %d of %d files", saved, len(changed))
		out.Error = "some files failed to save"
	}
	return out
}

func (s *Service) saveOne(f *models.File) models.FileSaveResult {
	res := models.FileSaveResult{FilePath: f.FilePath}

	serialized, err := serializer.Serialize(f)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if v := serializer.Validate(serialized); !v.Valid {
		res.Error = fmt.Sprintf("%v: %s", apperr.ErrValidation, strings.Join(v.Errors, "; "))
		return res
	}

	if err := s.store.Write(f.FilePath, []byte(serialized)); err != nil {
		res.Error = err.Error()
		return res
	}

	if err := s.indexData(f.FilePath, []byte(serialized)); err != nil {
		s.logger.Warn("workspace: index after save failed",
			slog.String("path", f.FilePath), slog.String("error", err.Error()))
	}

	f.HasChanges = false
	res.Success = true
	res.SavedAt = time.Now()
	s.emit("updated", f.FilePath)
	return res
}

// CreateFile writes a new .mdc file and indexes it. Explicit content
// takes precedence; when empty, a template of the given kind is
// scaffolded instead. The ".mdc" extension is appended when missing.
func (s *Service) CreateFile(_ context.Context, path, template, content string) (*models.File, error) {
	if !strings.HasSuffix(path, ".mdc") {
		path += ".mdc"
	}
	if s.store.Exists(path) {
		return nil, fmt.Errorf("workspace: create %s: %w", path, apperr.ErrAlreadyExists)
	}

	if content == "" {
		opts := serializer.TemplateOptions{
			Title: titleFromName(filepath.Base(path)),
			Type:  template,
		}
		switch template {
		case serializer.TemplateDocumentation:
			opts.AlwaysApply = true
			opts.Description = "Documentation file"
		case serializer.TemplateReference:
			opts.Description = "Reference file"
		default:
			opts.Type = serializer.TemplateTask
			opts.Description = "New task file"
		}

		generated, err := serializer.GenerateTemplate(opts)
		if err != nil {
			return nil, err
		}
		content = generated
	} else if v := serializer.Validate(content); !v.Valid {
		return nil, fmt.Errorf("workspace: create %s: %w: %s", path, apperr.ErrValidation, strings.Join(v.Errors, "; "))
	}
	if err := s.store.Write(path, []byte(content)); err != nil {
		return nil, err
	}
	if err := s.indexData(path, []byte(content)); err != nil {
		s.logger.Warn("workspace: index after create failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	f, err := parser.ParseFile(path, filepath.Base(path), []byte(content), time.Now())
	if err != nil {
		return nil, err
	}
	s.emit("created", path)
	return f, nil
}

// DeleteFile removes a workspace file, optionally backing it up first.
func (s *Service) DeleteFile(_ context.Context, path string, withBackup bool) error {
	if !s.store.Exists(path) {
		return fmt.Errorf("workspace: delete %s: %w", path, apperr.ErrNotFound)
	}

	if withBackup {
		abs, err := s.store.Abs(path)
		if err != nil {
			return err
		}
		if info := s.backups.Create(abs, s.backupOpts); !info.Success {
			s.logger.Warn("workspace: backup before delete failed",
				slog.String("path", path), slog.String("error", info.Error))
		}
	}

	if err := s.store.Delete(path); err != nil {
		return err
	}
	if err := s.db.DeleteFile(path); err != nil {
		s.logger.Warn("workspace: index delete failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
	s.emit("deleted", path)
	return nil
}

// BackupFile creates an on-demand backup of one workspace file.
func (s *Service) BackupFile(_ context.Context, path string) (backup.Info, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return backup.Info{}, err
	}
	if !s.store.Exists(path) {
		return backup.Info{}, fmt.Errorf("workspace: backup %s: %w", path, apperr.ErrNotFound)
	}
	return s.backups.Create(abs, s.backupOpts), nil
}

// RestoreBackup overwrites path with a backup copy (the newest when
// backupPath is empty) and re-indexes the restored content.
func (s *Service) RestoreBackup(_ context.Context, path, backupPath string) error {
	abs, err := s.store.Abs(path)
	if err != nil {
		return err
	}
	if err := s.backups.Restore(abs, backupPath, s.backupOpts); err != nil {
		return err
	}

	data, err := s.store.Read(path)
	if err == nil {
		if idxErr := s.indexData(path, data); idxErr != nil {
			s.logger.Warn("workspace: index after restore failed",
				slog.String("path", path), slog.String("error", idxErr.Error()))
		}
	}
	s.emit("updated", path)
	return nil
}

// ListBackups returns all backups for one workspace file, newest first.
func (s *Service) ListBackups(_ context.Context, path string) ([]backup.Entry, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.backups.List(abs, s.backupOpts)
}

// BackupStats aggregates the workspace root's backup directory.
func (s *Service) BackupStats(_ context.Context) (backup.Stats, error) {
	return s.backups.GetStats(s.store.Root(), s.backupOpts)
}

// CleanBackups deletes every backup under the workspace root's backup
// directory and returns how many were removed.
func (s *Service) CleanBackups(_ context.Context) (int, error) {
	return s.backups.CleanAll(s.store.Root(), s.backupOpts)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// ListFiles returns paginated index rows with optional status filter.
func (s *Service) ListFiles(_ context.Context, limit, offset int, status, sort string) ([]index.FileRow, int, error) {
	return s.db.ListFiles(limit, offset, status, sort)
}

// Summary returns aggregate task counts across the workspace.
func (s *Service) Summary(_ context.Context) (index.Summary, error) {
	return s.db.Summary()
}

func (s *Service) emit(kind, path string) {
	if s.notify != nil {
		s.notify(kind, path)
	}
}

// indexData parses raw file content and upserts it into the index.
func (s *Service) indexData(path string, data []byte) error {
	meta, body, err := frontmatter.Decode(data)
	if err != nil {
		return err
	}
	content := parser.ParseDocument(body, strings.TrimSuffix(filepath.Base(path), ".mdc"))
	total, done := content.TaskCounts()

	return s.db.UpsertFile(index.FileRow{
		Path:       path,
		Title:      content.Title,
		Checksum:   storage.Checksum(data),
		Status:     meta.Status,
		Priority:   meta.Priority,
		Tags:       meta.Tags,
		TotalTasks: total,
		DoneTasks:  done,
		UpdatedAt:  time.Now(),
	}, body)
}

// titleFromName turns a file name into a human title: extension
// stripped, separators spaced, words capitalized.
func titleFromName(name string) string {
	base := strings.TrimSuffix(name, ".mdc")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	if len(words) == 0 {
		return ""
	}
	return strings.Join(words, " ")
}
