// Package backup creates timestamped copies of workspace files before
// destructive writes, with retention pruning and restore.
//
// Backups live in a sibling ".backups" directory and are immutable once
// written; "current" always means newest-by-timestamp, recomputed from
// the directory listing on every call. There is no index or pointer
// file.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/apperr"
	"github.com/taskflowhq/taskflow/internal/models"
)

const (
	// DefaultMaxBackups is the retention count per file.
	DefaultMaxBackups = 10
	// DefaultDir is the backup directory name, created next to the file.
	DefaultDir = ".backups"

	backupExt    = ".mdc"
	backupMarker = ".backup-"
)

// Options control a single backup operation.
type Options struct {
	MaxBackups int    // retention count; DefaultMaxBackups when <= 0
	Dir        string // explicit backup directory; sibling DefaultDir when empty
	Disabled   bool   // when set, Create is a no-op reported as success
}

func (o Options) normalized() Options {
	if o.MaxBackups <= 0 {
		o.MaxBackups = DefaultMaxBackups
	}
	return o
}

// Info records one backup attempt. It is a value, not persisted state:
// the same facts are recoverable by re-listing the backup directory.
type Info struct {
	OriginalPath string    `json:"originalPath"`
	BackupPath   string    `json:"backupPath"`
	Timestamp    time.Time `json:"timestamp"`
	FileSize     int64     `json:"fileSize"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// Entry describes one existing backup file, newest first in listings.
type Entry struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Stats aggregates the backup directory of a project.
type Stats struct {
	TotalBackups int       `json:"totalBackups"`
	TotalSize    int64     `json:"totalSize"`
	OldestBackup time.Time `json:"oldestBackup,omitzero"`
	NewestBackup time.Time `json:"newestBackup,omitzero"`
}

// Manager performs backup lifecycle operations on absolute file paths.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Create copies path into its backup directory and prunes old copies
// beyond the retention count. Failures are reported in the returned
// Info rather than as an error, so batch callers can keep going.
func (m *Manager) Create(path string, opts Options) Info {
	o := opts.normalized()
	info := Info{OriginalPath: path, Timestamp: time.Now()}

	if o.Disabled {
		info.Success = true
		return info
	}

	st, err := os.Stat(path)
	if err != nil {
		return failed(info, fmt.Errorf("backup: stat source: %w", err))
	}

	dir := backupDirFor(path, o)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failed(info, fmt.Errorf("backup: create dir: %w", err))
	}

	base := strings.TrimSuffix(filepath.Base(path), backupExt)
	name := base + backupMarker + timestampToken(info.Timestamp) + backupExt
	backupPath := filepath.Join(dir, name)

	if err := copyFile(path, backupPath); err != nil {
		return failed(info, fmt.Errorf("backup: copy: %w", err))
	}

	m.prune(path, o)

	info.BackupPath = backupPath
	info.FileSize = st.Size()
	info.Success = true
	return info
}

// CreateAll backs up every file flagged hasChanges. Each file is
// independent; one failure never aborts the batch. resolve maps a
// workspace-relative path to an absolute one.
func (m *Manager) CreateAll(files []*models.File, opts Options, resolve func(string) (string, error)) []Info {
	var out []Info
	for _, f := range files {
		if !f.HasChanges {
			continue
		}
		abs, err := resolve(f.FilePath)
		if err != nil {
			out = append(out, failed(Info{OriginalPath: f.FilePath, Timestamp: time.Now()}, err))
			continue
		}
		out = append(out, m.Create(abs, opts))
	}
	return out
}

// Restore copies a backup over the original file. With an empty
// backupPath the newest backup for originalPath is used; without any,
// apperr.ErrNotFound is returned. The overwrite is direct, no merge.
func (m *Manager) Restore(originalPath, backupPath string, opts Options) error {
	if backupPath == "" {
		entries, err := m.List(originalPath, opts)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("backup: restore %s: %w", originalPath, apperr.ErrNotFound)
		}
		backupPath = entries[0].Path
	}

	if _, err := os.Stat(backupPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("backup: restore %s: %w", backupPath, apperr.ErrNotFound)
		}
		return fmt.Errorf("backup: stat backup: %w", err)
	}

	if err := copyFile(backupPath, originalPath); err != nil {
		return fmt.Errorf("backup: restore copy: %w", err)
	}
	return nil
}

// List returns all backups for path, newest first. Ordering uses the
// timestamp embedded in the file name, falling back to the filesystem
// modification time when the name does not parse. A missing backup
// directory yields an empty list, not an error.
func (m *Manager) List(path string, opts Options) ([]Entry, error) {
	o := opts.normalized()
	dir := backupDirFor(path, o)
	base := strings.TrimSuffix(filepath.Base(path), backupExt)
	prefix := base + backupMarker

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: list: %w", err)
	}

	var out []Entry
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			continue
		}
		token := name[len(prefix) : len(name)-len(backupExt)]
		ts, err := parseTimestampToken(token)
		if err != nil {
			ts = fi.ModTime()
		}
		out = append(out, Entry{
			Path:      filepath.Join(dir, name),
			Timestamp: ts,
			Size:      fi.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// GetStats reports aggregate numbers for the backup directory under
// projectDir. A missing directory yields zero stats.
func (m *Manager) GetStats(projectDir string, opts Options) (Stats, error) {
	dir := backupDirIn(projectDir, opts)

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("backup: stats: %w", err)
	}

	var s Stats
	for _, d := range dirents {
		if d.IsDir() || !strings.Contains(d.Name(), backupMarker) {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			continue
		}
		s.TotalBackups++
		s.TotalSize += fi.Size()
		mt := fi.ModTime()
		if s.OldestBackup.IsZero() || mt.Before(s.OldestBackup) {
			s.OldestBackup = mt
		}
		if mt.After(s.NewestBackup) {
			s.NewestBackup = mt
		}
	}
	return s, nil
}

// CleanAll deletes every backup under projectDir's backup directory and
// removes the directory itself if nothing else remains. Returns the
// number of deleted backups.
func (m *Manager) CleanAll(projectDir string, opts Options) (int, error) {
	dir := backupDirIn(projectDir, opts)

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("backup: clean: %w", err)
	}

	deleted := 0
	for _, d := range dirents {
		if d.IsDir() || !strings.Contains(d.Name(), backupMarker) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, d.Name())); err != nil {
			return deleted, fmt.Errorf("backup: delete %s: %w", d.Name(), err)
		}
		deleted++
	}

	remaining, err := os.ReadDir(dir)
	if err == nil && len(remaining) == 0 {
		_ = os.Remove(dir)
	}
	return deleted, nil
}

// prune deletes backups of path beyond the retention count, oldest
// first. Individual delete failures are logged and never fail the
// backup that triggered the pruning.
func (m *Manager) prune(path string, o Options) {
	entries, err := m.List(path, o)
	if err != nil {
		m.logger.Warn("backup: prune listing failed",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if len(entries) <= o.MaxBackups {
		return
	}
	for _, e := range entries[o.MaxBackups:] {
		if err := os.Remove(e.Path); err != nil {
			m.logger.Warn("backup: prune delete failed",
				slog.String("backup", e.Path), slog.String("error", err.Error()))
			continue
		}
		m.logger.Debug("backup: pruned", slog.String("backup", e.Path))
	}
}

func failed(info Info, err error) Info {
	info.Success = false
	info.Error = err.Error()
	return info
}

func backupDirFor(filePath string, o Options) string {
	if o.Dir != "" {
		return o.Dir
	}
	return filepath.Join(filepath.Dir(filePath), DefaultDir)
}

func backupDirIn(projectDir string, o Options) string {
	if o.Dir != "" {
		return o.Dir
	}
	return filepath.Join(projectDir, DefaultDir)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// timestampToken renders t as an ISO timestamp with ':' and '.'
// replaced by '-', making it filename-safe on every platform.
func timestampToken(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// parseTimestampToken inverts timestampToken. The token is fixed-width,
// so the replaced separators sit at known offsets.
func parseTimestampToken(token string) (time.Time, error) {
	const want = len("2006-01-02T15-04-05-000000000Z")
	if len(token) != want {
		return time.Time{}, fmt.Errorf("backup: bad timestamp token %q", token)
	}
	b := []byte(token)
	if b[13] != '-' || b[16] != '-' || b[19] != '-' {
		return time.Time{}, fmt.Errorf("backup: bad timestamp token %q", token)
	}
	b[13], b[16], b[19] = ':', ':', '.'
	return time.Parse(time.RFC3339Nano, string(b))
}
