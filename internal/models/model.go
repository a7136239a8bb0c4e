// Package models defines the domain types for TaskFlow.
package models

import "time"

// Metadata holds the frontmatter fields of an .mdc file.
//
// Description distinguishes "absent" (nil) from "empty string" (set but
// blank); both states survive an encode/decode round trip. AlwaysApply
// is always serialized, even when false.
type Metadata struct {
	Description *string  `json:"description,omitempty"`
	Globs       []string `json:"globs,omitempty"`
	AlwaysApply bool     `json:"alwaysApply"`
	Type        string   `json:"type,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Phase       string   `json:"phase,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ContentData is the parsed markdown body of an .mdc file.
type ContentData struct {
	Title  string  `json:"title,omitempty"`
	Phases []Phase `json:"phases"`
}

// Phase is the top-level container of the task hierarchy. The parser
// produces exactly one Phase per file, derived from the document's
// level-1 heading (or the file name when no heading exists).
type Phase struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Etapas []Etapa `json:"etapas"`
}

// Etapa is a stage within a Phase, derived from a level-2 heading.
// Headings in the "🔧 Task N.M: Name" form keep the full heading text
// as the title, marker glyph included.
type Etapa struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Tasks []TaskItem `json:"tasks"`
}

// TaskItem is a checkbox line item.
type TaskItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Subtasks  []SubTask `json:"subtasks"`
}

// SubTask is an indented checkbox nested under a TaskItem.
type SubTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// File is one parsed .mdc file. FilePath is relative to the workspace
// root. HasChanges is set by the editing client and cleared by the
// workspace service after a successful save.
type File struct {
	FilePath     string      `json:"filePath"`
	FileName     string      `json:"fileName"`
	Metadata     Metadata    `json:"metadata"`
	Content      ContentData `json:"content"`
	LastModified time.Time   `json:"lastModified"`
	HasChanges   bool        `json:"hasChanges,omitempty"`
}

// Workspace is the root aggregate for a loaded project directory.
// It is replaced wholesale on reload, never merged incrementally.
type Workspace struct {
	ProjectPath string    `json:"projectPath"`
	Files       []*File   `json:"files"`
	LoadedAt    time.Time `json:"loadedAt"`
	ScanErrors  []string  `json:"scanErrors"`
}

// FileSaveResult reports the outcome of saving a single file.
type FileSaveResult struct {
	FilePath string    `json:"filePath"`
	Success  bool      `json:"success"`
	SavedAt  time.Time `json:"savedAt"`
	Error    string    `json:"error,omitempty"`
}

// SaveResult aggregates per-file outcomes of a workspace save.
// Success is true only when every changed file was written.
type SaveResult struct {
	Success bool             `json:"success"`
	Results []FileSaveResult `json:"results"`
	Message string           `json:"message"`
	Error   string           `json:"error,omitempty"`
}

// ChangedFiles returns the files flagged as modified by the client.
func (w *Workspace) ChangedFiles() []*File {
	var out []*File
	for _, f := range w.Files {
		if f.HasChanges {
			out = append(out, f)
		}
	}
	return out
}

// TaskCounts returns total and completed task counts across all phases,
// subtasks included.
func (c *ContentData) TaskCounts() (total, done int) {
	for _, p := range c.Phases {
		for _, e := range p.Etapas {
			for _, t := range e.Tasks {
				total++
				if t.Completed {
					done++
				}
				for _, st := range t.Subtasks {
					total++
					if st.Completed {
						done++
					}
				}
			}
		}
	}
	return total, done
}
