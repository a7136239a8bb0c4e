package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/taskflowhq/taskflow/internal/backup"
	"github.com/taskflowhq/taskflow/internal/testutil"
	"github.com/taskflowhq/taskflow/internal/workspace"
)

const sampleFile = `---
alwaysApply: false
status: todo
---

# API Sample

## 🔧 Task 1.1: First

### Critérios de Aceite
- [ ] one
`

func testRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	svc := workspace.NewService(store, db, backup.NewManager(nil), backup.Options{}, nil, nil)
	return NewRouter(svc, false, "", nil), dir
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
}

func TestLoadWorkspace_Empty(t *testing.T) {
	h, _ := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/workspace/load", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for empty workspace", rec.Code)
	}
}

func TestLoadWorkspace(t *testing.T) {
	h, dir := testRouter(t)
	testutil.WriteFile(t, dir, "a.mdc", sampleFile)

	rec := doJSON(t, h, http.MethodPost, "/workspace/load", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp WorkspaceResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Workspace == nil || len(resp.Workspace.Files) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateFile(t *testing.T) {
	h, _ := testRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{FilePath: "plan"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp FileResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.File == nil || resp.File.FilePath != "plan.mdc" {
		t.Errorf("response = %+v", resp)
	}

	rec = doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{FilePath: "plan"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}
}

func TestCreateFile_WithContent(t *testing.T) {
	h, dir := testRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{FilePath: "custom", Content: sampleFile})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "custom.mdc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleFile {
		t.Errorf("content was not written verbatim:\n%s", data)
	}

	rec = doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{FilePath: "invalid", Content: "just prose\n"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid content status = %d, want 400", rec.Code)
	}
}

func TestCreateFile_MissingPath(t *testing.T) {
	h, _ := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteFile(t *testing.T) {
	h, dir := testRouter(t)
	testutil.WriteFile(t, dir, "sub/gone.mdc", sampleFile)

	rec := doJSON(t, h, http.MethodDelete, "/files/sub/gone.mdc", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, "/files/sub/gone.mdc", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDeleteFile_BackupByDefault(t *testing.T) {
	h, dir := testRouter(t)
	testutil.WriteFile(t, dir, "doomed.mdc", sampleFile)

	// No backup query parameter: a backup must still be taken.
	rec := doJSON(t, h, http.MethodDelete, "/files/doomed.mdc", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/backups?filePath=doomed.mdc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var list BackupListResponse
	decodeBody(t, rec, &list)
	if len(list.Backups) != 1 {
		t.Errorf("backups = %d, want 1 from default delete", len(list.Backups))
	}
}

func TestDeleteFile_BackupOptOut(t *testing.T) {
	h, dir := testRouter(t)
	testutil.WriteFile(t, dir, "doomed.mdc", sampleFile)

	rec := doJSON(t, h, http.MethodDelete, "/files/doomed.mdc?backup=false", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/backups?filePath=doomed.mdc", nil)
	var list BackupListResponse
	decodeBody(t, rec, &list)
	if len(list.Backups) != 0 {
		t.Errorf("backups = %d, want 0 after explicit opt-out", len(list.Backups))
	}
}

func TestSaveWorkspace_InvalidJSON(t *testing.T) {
	h, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/workspace/save", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSaveWorkspace_NoChanges(t *testing.T) {
	h, _ := testRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/workspace/save", SaveWorkspaceRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Message != "No changes to save" {
		t.Errorf("response = %+v", resp)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	h, dir := testRouter(t)
	testutil.WriteFile(t, dir, "work.mdc", sampleFile)

	rec := doJSON(t, h, http.MethodPost, "/backups", BackupRequest{FilePath: "work.mdc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("backup status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/backups?filePath=work.mdc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var list BackupListResponse
	decodeBody(t, rec, &list)
	if len(list.Backups) != 1 {
		t.Errorf("backups = %+v, want 1", list.Backups)
	}

	rec = doJSON(t, h, http.MethodPost, "/backups/restore", RestoreRequest{FilePath: "work.mdc"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("restore status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, "/backups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clean status = %d", rec.Code)
	}
	var cleaned map[string]int
	decodeBody(t, rec, &cleaned)
	if cleaned["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", cleaned["deleted"])
	}
}

func TestListBackups_MissingParam(t *testing.T) {
	h, _ := testRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/backups", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	h, _ := testRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", rec.Code)
	}

	// Created files are indexed, so search hits without an explicit load.
	doJSON(t, h, http.MethodPost, "/files", CreateFileRequest{FilePath: "findme"})
	rec = doJSON(t, h, http.MethodGet, "/search?q=Primeira", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	decodeBody(t, rec, &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "findme.mdc" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestListFiles_EmptyIndex(t *testing.T) {
	h, _ := testRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp FileListResponse
	decodeBody(t, rec, &resp)
	if resp.Files == nil || len(resp.Files) != 0 || resp.Total != 0 {
		t.Errorf("response = %+v, want empty non-nil list", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	dir, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	testutil.WriteFile(t, dir, "a.mdc", sampleFile)
	svc := workspace.NewService(store, db, backup.NewManager(nil), backup.Options{}, nil, nil)
	h := NewRouter(svc, true, "secret", nil)

	req := httptest.NewRequest(http.MethodPost, "/workspace/load", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/workspace/load", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/workspace/load", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rec.Code)
	}
}
