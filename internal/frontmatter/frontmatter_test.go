package frontmatter

import (
	"strings"
	"testing"

	"github.com/taskflowhq/taskflow/internal/models"
)

func strptr(s string) *string { return &s }

// modelsMetadata returns a metadata value with the optional scalar
// fields set and phase/tags left empty.
func modelsMetadata() models.Metadata {
	return models.Metadata{
		Description: strptr("Example file"),
		Globs:       []string{"src/**"},
		AlwaysApply: false,
		Type:        "task",
		Status:      "todo",
		Priority:    "medium",
	}
}

func TestDecode_FullBlock(t *testing.T) {
	raw := []byte(`---
description: Sprint backend work
globs:
  - src/**
  - cmd/**
alwaysApply: true
type: task
status: in-progress
priority: high
phase: "1"
tags:
  - backend
---

# Title
body text
`)
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Description == nil || *meta.Description != "Sprint backend work" {
		t.Errorf("description = %v", meta.Description)
	}
	if len(meta.Globs) != 2 || meta.Globs[0] != "src/**" {
		t.Errorf("globs = %v", meta.Globs)
	}
	if !meta.AlwaysApply {
		t.Error("alwaysApply should be true")
	}
	if meta.Type != "task" || meta.Status != "in-progress" || meta.Priority != "high" || meta.Phase != "1" {
		t.Errorf("scalar fields = %+v", meta)
	}
	if len(meta.Tags) != 1 || meta.Tags[0] != "backend" {
		t.Errorf("tags = %v", meta.Tags)
	}
	if !strings.HasPrefix(body, "# Title") {
		t.Errorf("body = %q", body)
	}
}

func TestDecode_NoFrontmatter(t *testing.T) {
	raw := []byte("# Just markdown\n- [ ] task\n")
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.AlwaysApply || meta.Description != nil {
		t.Errorf("expected zero metadata, got %+v", meta)
	}
	if body != string(raw) {
		t.Errorf("body = %q, want full input", body)
	}
}

func TestDecode_UnclosedBlock(t *testing.T) {
	raw := []byte("---\ndescription: never closed\n# body?\n")
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Description != nil {
		t.Error("unclosed block should not decode as frontmatter")
	}
	if body != string(raw) {
		t.Errorf("body = %q, want full input", body)
	}
}

func TestDecode_MalformedYAML(t *testing.T) {
	raw := []byte("---\ndescription: [unbalanced\n---\nbody\n")
	_, _, err := Decode(raw)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "frontmatter") {
		t.Errorf("error = %v", err)
	}
}

func TestDecode_GlobsScalar(t *testing.T) {
	raw := []byte("---\nglobs: src/**\nalwaysApply: false\n---\nbody\n")
	meta, _, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(meta.Globs) != 1 || meta.Globs[0] != "src/**" {
		t.Errorf("globs = %v, want single-element list", meta.Globs)
	}
}

func TestEncode_FieldOrderAndOmissions(t *testing.T) {
	out, err := Encode(modelsMetadata(), "# Body\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// alwaysApply must appear even though it is false; phase and tags
	// are unset and must be absent.
	if !strings.Contains(out, "alwaysApply: false") {
		t.Errorf("missing alwaysApply in %q", out)
	}
	if strings.Contains(out, "phase:") || strings.Contains(out, "tags:") {
		t.Errorf("unset fields leaked into %q", out)
	}

	descIdx := strings.Index(out, "description:")
	globsIdx := strings.Index(out, "globs:")
	applyIdx := strings.Index(out, "alwaysApply:")
	typeIdx := strings.Index(out, "type:")
	if !(descIdx < globsIdx && globsIdx < applyIdx && applyIdx < typeIdx) {
		t.Errorf("field order wrong in %q", out)
	}

	if !strings.HasSuffix(out, "# Body\n") {
		t.Errorf("body not appended: %q", out)
	}
}

func TestEncode_EmptyDescriptionKept(t *testing.T) {
	meta := modelsMetadata()
	meta.Description = strptr("")
	out, err := Encode(meta, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, `description: ""`) {
		t.Errorf("empty description should serialize as quoted empty string: %q", out)
	}
}

func TestEncode_NilDescriptionOmitted(t *testing.T) {
	meta := modelsMetadata()
	meta.Description = nil
	out, err := Encode(meta, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "description") {
		t.Errorf("nil description should be omitted: %q", out)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := modelsMetadata()
	orig.Tags = []string{"a", "b"}
	orig.Phase = "2"

	out, err := Encode(orig, "# Doc\n\n- [ ] task\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	meta, body, err := Decode([]byte(out))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if *meta.Description != *orig.Description {
		t.Errorf("description = %q, want %q", *meta.Description, *orig.Description)
	}
	if len(meta.Globs) != len(orig.Globs) || meta.Globs[0] != orig.Globs[0] {
		t.Errorf("globs = %v, want %v", meta.Globs, orig.Globs)
	}
	if meta.AlwaysApply != orig.AlwaysApply || meta.Type != orig.Type ||
		meta.Status != orig.Status || meta.Priority != orig.Priority || meta.Phase != orig.Phase {
		t.Errorf("scalars = %+v, want %+v", meta, orig)
	}
	if len(meta.Tags) != 2 {
		t.Errorf("tags = %v", meta.Tags)
	}
	if !strings.HasPrefix(body, "# Doc") {
		t.Errorf("body = %q", body)
	}
}
