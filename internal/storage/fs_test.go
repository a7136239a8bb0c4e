package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, f
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNewFS_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestAbs_RejectsTraversal(t *testing.T) {
	_, f := newTestFS(t)

	for _, rel := range []string{"../outside.mdc", "a/../../outside.mdc", "/etc/passwd"} {
		if _, err := f.Abs(rel); err == nil {
			t.Errorf("Abs(%q) should fail", rel)
		}
	}
}

func TestAbs_Empty(t *testing.T) {
	dir, f := newTestFS(t)
	abs, err := f.Abs("")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	resolved, _ := filepath.Abs(dir)
	if abs != resolved {
		t.Errorf("Abs(\"\") = %q, want root %q", abs, resolved)
	}
}

func TestWriteReadDelete(t *testing.T) {
	_, f := newTestFS(t)

	if err := f.Write("nested/dir/file.mdc", []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read("nested/dir/file.mdc")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	// Overwrite is atomic and leaves no temp files.
	if err := f.Write("nested/dir/file.mdc", []byte("hello2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(f.Root(), "nested", "dir"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".taskflow-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	if !f.Exists("nested/dir/file.mdc") {
		t.Error("Exists should be true")
	}
	if err := f.Delete("nested/dir/file.mdc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.Exists("nested/dir/file.mdc") {
		t.Error("Exists should be false after delete")
	}
}

func TestScan(t *testing.T) {
	dir, f := newTestFS(t)

	mustWrite := func(rel, content string) {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite("a.mdc", "a")
	mustWrite("sub/b.mdc", "b")
	mustWrite("sub/deep/c.mdc", "c")
	mustWrite("readme.md", "not mdc")
	mustWrite(".hidden/secret.mdc", "hidden")
	mustWrite(".backups/a.backup-x.mdc", "backup")

	res, err := f.Scan("")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.TotalFiles != 3 {
		t.Fatalf("total = %d, want 3: %+v", res.TotalFiles, res.Files)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v", res.Errors)
	}

	paths := make(map[string]bool)
	for _, entry := range res.Files {
		paths[entry.Path] = true
		if entry.Size == 0 || entry.ModTime.IsZero() {
			t.Errorf("entry %q missing size/modtime", entry.Path)
		}
	}
	for _, want := range []string{"a.mdc", filepath.Join("sub", "b.mdc"), filepath.Join("sub", "deep", "c.mdc")} {
		if !paths[want] {
			t.Errorf("missing %q in scan", want)
		}
	}
}

func TestList_ChecksumsChangeWithContent(t *testing.T) {
	_, f := newTestFS(t)
	if err := f.Write("x.mdc", []byte("one")); err != nil {
		t.Fatal(err)
	}

	before, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("metas = %d, want 1", len(before))
	}

	if err := f.Write("x.mdc", []byte("two")); err != nil {
		t.Fatal(err)
	}
	after, _ := f.List("")
	if after[0].Checksum == before[0].Checksum {
		t.Error("checksum should change with content")
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	a := Checksum([]byte("same"))
	b := Checksum([]byte("same"))
	if a != b {
		t.Error("checksum not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}
