package index

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/frontmatter"
	"github.com/taskflowhq/taskflow/internal/parser"
	"github.com/taskflowhq/taskflow/internal/storage"
)

// Sync walks the workspace and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	meta, body, err := frontmatter.Decode(data)
	if err != nil {
		return err
	}

	fallback := strings.TrimSuffix(filepath.Base(path), ".mdc")
	content := parser.ParseDocument(body, fallback)
	total, done := content.TaskCounts()

	row := FileRow{
		Path:       path,
		Title:      content.Title,
		Checksum:   storage.Checksum(data),
		Status:     meta.Status,
		Priority:   meta.Priority,
		Tags:       meta.Tags,
		TotalTasks: total,
		DoneTasks:  done,
		UpdatedAt:  time.Now(),
	}
	return db.UpsertFile(row, body)
}
