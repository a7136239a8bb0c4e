package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path       string    `json:"filePath"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	Tags       []string  `json:"tags"`
	TotalTasks int       `json:"totalTasks"`
	DoneTasks  int       `json:"doneTasks"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"filePath"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Summary aggregates the indexed workspace.
type Summary struct {
	TotalFiles int            `json:"totalFiles"`
	TotalTasks int            `json:"totalTasks"`
	DoneTasks  int            `json:"doneTasks"`
	ByStatus   map[string]int `json:"byStatus"`
}

// UpsertFile inserts or replaces a file row and its FTS entry within a
// transaction. body is the markdown after the frontmatter block.
func (db *DB) UpsertFile(row FileRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(row.Tags)

	// Upsert files table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO files (path, title, checksum, status, priority, tags, total_tasks, done_tasks, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			status      = excluded.status,
			priority    = excluded.priority,
			tags        = excluded.tags,
			total_tasks = excluded.total_tasks,
			done_tasks  = excluded.done_tasks,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, row.Path, row.Title, row.Checksum, row.Status, row.Priority,
		string(tagsJSON), row.TotalTasks, row.DoneTasks, body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Path, row.Title, body, row.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFile removes a file row and its FTS entry.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM files WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListFiles returns a page of file rows plus the total count matching
// the filter. status filters exactly when non-empty. sort is one of
// "updated" (default, newest first), "title", "path".
func (db *DB) ListFiles(limit, offset int, status, sort string) ([]FileRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if status != "" {
		where = `WHERE status = ?`
		args = append(args, status)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM files `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count files: %w", err)
	}

	order := `updated_at DESC`
	switch sort {
	case "title":
		order = `title COLLATE NOCASE ASC`
	case "path":
		order = `path ASC`
	}

	query := fmt.Sprintf(`
		SELECT path, title, checksum, status, priority, tags, total_tasks, done_tasks, updated_at
		FROM files %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var r FileRow
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Title, &r.Checksum, &r.Status, &r.Priority,
			&tagsJSON, &r.TotalTasks, &r.DoneTasks, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Summary aggregates task counts and status distribution across all
// indexed files.
func (db *DB) Summary() (Summary, error) {
	s := Summary{ByStatus: make(map[string]int)}

	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total_tasks), 0), COALESCE(SUM(done_tasks), 0)
		FROM files
	`).Scan(&s.TotalFiles, &s.TotalTasks, &s.DoneTasks)
	if err != nil {
		return Summary{}, fmt.Errorf("index: summary: %w", err)
	}

	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM files GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("index: summary by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return Summary{}, err
		}
		s.ByStatus[st] = n
	}
	return s, rows.Err()
}
