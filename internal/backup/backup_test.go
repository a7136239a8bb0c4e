package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskflowhq/taskflow/internal/apperr"
	"github.com/taskflowhq/taskflow/internal/models"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "content v1")
	m := NewManager(nil)

	info := m.Create(src, Options{})
	if !info.Success {
		t.Fatalf("create failed: %s", info.Error)
	}
	if info.FileSize != int64(len("content v1")) {
		t.Errorf("size = %d", info.FileSize)
	}
	if filepath.Dir(info.BackupPath) != filepath.Join(dir, DefaultDir) {
		t.Errorf("backup dir = %q", filepath.Dir(info.BackupPath))
	}

	data, err := os.ReadFile(info.BackupPath)
	if err != nil {
		t.Fatalf("backup not on disk: %v", err)
	}
	if string(data) != "content v1" {
		t.Errorf("backup content = %q", data)
	}
}

func TestCreate_Disabled(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "x")
	m := NewManager(nil)

	info := m.Create(src, Options{Disabled: true})
	if !info.Success {
		t.Error("disabled create should report success")
	}
	if info.BackupPath != "" {
		t.Errorf("backup path = %q, want empty", info.BackupPath)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultDir)); !errors.Is(err, os.ErrNotExist) {
		t.Error("backup dir should not exist when disabled")
	}
}

func TestCreate_MissingSource(t *testing.T) {
	m := NewManager(nil)
	info := m.Create(filepath.Join(t.TempDir(), "nope.mdc"), Options{})
	if info.Success {
		t.Fatal("expected failure for missing source")
	}
	if info.Error == "" {
		t.Error("error message should be set")
	}
}

func TestRetentionPruning(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "v")
	m := NewManager(nil)
	opts := Options{MaxBackups: 3}

	for i := 0; i < 5; i++ {
		if info := m.Create(src, opts); !info.Success {
			t.Fatalf("create %d failed: %s", i, info.Error)
		}
	}

	entries, err := m.List(src, opts)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 after pruning", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Error("entries not sorted newest first")
		}
	}
}

func TestList_NoBackupDir(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "v")
	m := NewManager(nil)

	entries, err := m.List(src, Options{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestList_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "v")
	other := writeSource(t, dir, "other.mdc", "w")
	m := NewManager(nil)

	m.Create(src, Options{})
	m.Create(other, Options{})

	entries, err := m.List(src, Options{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (other file's backups excluded)", len(entries))
	}
}

func TestRestore_Newest(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "old content")
	m := NewManager(nil)

	if info := m.Create(src, Options{}); !info.Success {
		t.Fatal(info.Error)
	}
	if err := os.WriteFile(src, []byte("newer, soon discarded"), 0o644); err != nil {
		t.Fatal(err)
	}
	if info := m.Create(src, Options{}); !info.Success {
		t.Fatal(info.Error)
	}
	if err := os.WriteFile(src, []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(src, "", Options{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, _ := os.ReadFile(src)
	if string(data) != "newer, soon discarded" {
		t.Errorf("restored = %q, want newest backup content", data)
	}
}

func TestRestore_NoBackups(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "v")
	m := NewManager(nil)

	err := m.Restore(src, "", Options{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRestore_ExplicitMissingBackup(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "v")
	m := NewManager(nil)

	err := m.Restore(src, filepath.Join(dir, DefaultDir, "nope.mdc"), Options{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAll_OnlyChangedAndIndependent(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.mdc", "a")
	m := NewManager(nil)

	files := []*models.File{
		{FilePath: "a.mdc", HasChanges: true},
		{FilePath: "missing.mdc", HasChanges: true},
		{FilePath: "untouched.mdc", HasChanges: false},
	}
	resolve := func(rel string) (string, error) {
		return filepath.Join(dir, rel), nil
	}

	infos := m.CreateAll(files, Options{}, resolve)
	if len(infos) != 2 {
		t.Fatalf("infos = %d, want 2 (unchanged file skipped)", len(infos))
	}
	if !infos[0].Success {
		t.Errorf("a.mdc backup failed: %s", infos[0].Error)
	}
	if infos[1].Success {
		t.Error("missing.mdc backup should fail without aborting the batch")
	}
}

func TestGetStatsAndCleanAll(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "plan.mdc", "some content")
	m := NewManager(nil)

	m.Create(src, Options{})
	m.Create(src, Options{})

	stats, err := m.GetStats(dir, Options{})
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalBackups != 2 {
		t.Errorf("total = %d, want 2", stats.TotalBackups)
	}
	if stats.TotalSize != 2*int64(len("some content")) {
		t.Errorf("size = %d", stats.TotalSize)
	}
	if stats.NewestBackup.Before(stats.OldestBackup) {
		t.Error("newest before oldest")
	}

	deleted, err := m.CleanAll(dir, Options{})
	if err != nil {
		t.Fatalf("CleanAll: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultDir)); !errors.Is(err, os.ErrNotExist) {
		t.Error("empty backup dir should be removed")
	}

	// Clean on a missing dir is a no-op.
	deleted, err = m.CleanAll(dir, Options{})
	if err != nil || deleted != 0 {
		t.Errorf("second clean = %d, %v", deleted, err)
	}
}

func TestTimestampTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)
	token := timestampToken(now)
	parsed, err := parseTimestampToken(token)
	if err != nil {
		t.Fatalf("parse %q: %v", token, err)
	}
	if !parsed.Equal(now) {
		t.Errorf("parsed = %v, want %v", parsed, now)
	}
}

func TestParseTimestampToken_Garbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", "2026-03-14T15-04-05-00000000Z"} {
		if _, err := parseTimestampToken(tok); err == nil {
			t.Errorf("token %q should not parse", tok)
		}
	}
}
