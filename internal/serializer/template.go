package serializer

import (
	"time"

	"github.com/taskflowhq/taskflow/internal/models"
)

// Template kinds accepted by GenerateTemplate and the create-file API.
const (
	TemplateTask          = "task"
	TemplateDocumentation = "documentation"
	TemplateReference     = "reference"
)

// TemplateOptions control scaffolding of a new .mdc file.
type TemplateOptions struct {
	Title       string
	Type        string
	AlwaysApply bool
	Description string
}

// GenerateTemplate builds a minimal single-task file in memory and
// serializes it. Defaults: type "task", status "todo", priority
// "medium".
func GenerateTemplate(opts TemplateOptions) (string, error) {
	title := opts.Title
	if title == "" {
		title = "Novo Arquivo"
	}
	kind := opts.Type
	if kind == "" {
		kind = TemplateTask
	}
	description := opts.Description

	file := &models.File{
		FilePath: "",
		FileName: "template.mdc",
		Metadata: models.Metadata{
			Description: &description,
			Globs:       []string{},
			AlwaysApply: opts.AlwaysApply,
			Type:        kind,
			Status:      "todo",
			Priority:    "medium",
			Tags:        []string{},
		},
		Content: models.ContentData{
			Title: title,
			Phases: []models.Phase{{
				ID:    models.NewID("phase", title),
				Title: title,
				Etapas: []models.Etapa{{
					ID:    models.NewID("etapa", "task primeira tarefa"),
					Title: "🔧 Task 1.1: Primeira Tarefa",
					Tasks: []models.TaskItem{{
						ID:        models.NewID("task", "implementar funcionalidade basica"),
						Title:     "Implementar funcionalidade básica",
						Completed: false,
						Subtasks:  []models.SubTask{},
					}},
				}},
			}},
		},
		LastModified: time.Now(),
	}

	return Serialize(file)
}
