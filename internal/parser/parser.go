// Package parser converts .mdc markdown into the hierarchical task
// model: one phase per file, etapas from level-2 headings, tasks and
// subtasks from checkbox lines.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/taskflowhq/taskflow/internal/frontmatter"
	"github.com/taskflowhq/taskflow/internal/models"
)

// checkboxRe matches "- [ ] title" / "- [x] title" lines, with a
// case-insensitive completion marker. Lines with an empty title do not
// match and are ignored.
var checkboxRe = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.+)$`)

// ParseFile decodes frontmatter and body of one .mdc file into a
// workspace File. relPath is the file's path relative to the workspace
// root; name its base name. Errors are attributed to the file name.
func ParseFile(relPath, name string, content []byte, modTime time.Time) (*models.File, error) {
	meta, body, err := frontmatter.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	fallback := strings.TrimSuffix(name, ".mdc")
	return &models.File{
		FilePath:     relPath,
		FileName:     name,
		Metadata:     meta,
		Content:      ParseDocument(body, fallback),
		LastModified: modTime,
	}, nil
}

// ParseDocument converts a markdown body into ContentData. The first
// level-1 heading becomes the document title and seeds the single root
// phase; without one the phase is titled from fallbackTitle with
// non-alphanumeric characters replaced by spaces. A body with no
// structural markdown at all still yields that one phase, so consumers
// never see an empty phase list for a non-empty file.
func ParseDocument(body, fallbackTitle string) models.ContentData {
	lines := strings.Split(body, "\n")

	var title string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(trimmed[2:])
			break
		}
	}

	phaseTitle := title
	if phaseTitle == "" {
		phaseTitle = defaultTitle(fallbackTitle)
	}
	phase := models.Phase{
		ID:     models.NewID("phase", phaseTitle),
		Title:  phaseTitle,
		Etapas: []models.Etapa{},
	}

	var etapa *models.Etapa
	closeEtapa := func() {
		if etapa != nil {
			phase.Etapas = append(phase.Etapas, *etapa)
			etapa = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "# ") {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "## "):
			closeEtapa()
			sectionTitle := strings.TrimSpace(trimmed[3:])
			switch classify(level2Rules, sectionTitle) {
			case classOpenEtapaFullTitle:
				taskName := taskHeadingRe.FindStringSubmatch(sectionTitle)[1]
				etapa = &models.Etapa{
					ID:    models.NewID("etapa", "task "+taskName),
					Title: sectionTitle,
					Tasks: []models.TaskItem{},
				}
			default:
				etapa = &models.Etapa{
					ID:    models.NewID("etapa", sectionTitle),
					Title: sectionTitle,
					Tasks: []models.TaskItem{},
				}
			}

		case strings.HasPrefix(trimmed, "### "):
			// Every level-3 heading is consumed without touching parser
			// state; see level3Rules. Known boilerplate must not close
			// the current etapa, and sub-etapa nesting is unsupported.
			cleaned := strings.TrimSpace(strings.ReplaceAll(trimmed[4:], "**", ""))
			_ = classify(level3Rules, cleaned)

		case checkboxRe.MatchString(trimmed):
			if etapa == nil {
				etapa = &models.Etapa{
					ID:    models.NewID("etapa", "tasks"),
					Title: "Tarefas",
					Tasks: []models.TaskItem{},
				}
			}
			task, next := parseTask(lines, i)
			etapa.Tasks = append(etapa.Tasks, task)
			i = next - 1
		}
	}
	closeEtapa()

	return models.ContentData{
		Title:  title,
		Phases: []models.Phase{phase},
	}
}

// parseTask parses the checkbox line at start plus its subtask window.
// The window extends over the following lines while they are indented
// by at least two spaces, non-blank, and not headings; it ends at the
// first violation, so a top-level checkbox line terminates it too.
// Returns the index of the first line after the consumed window.
func parseTask(lines []string, start int) (models.TaskItem, int) {
	m := checkboxRe.FindStringSubmatch(strings.TrimSpace(lines[start]))
	title := strings.TrimSpace(m[2])
	task := models.TaskItem{
		ID:        models.NewID("task", title),
		Title:     title,
		Completed: strings.EqualFold(m[1], "x"),
		Subtasks:  []models.SubTask{},
	}

	i := start + 1
	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "##") || !strings.HasPrefix(line, "  ") {
			break
		}
		sm := checkboxRe.FindStringSubmatch(trimmed)
		if sm == nil {
			// Indented prose inside the window is ignored, not an error.
			continue
		}
		subTitle := strings.TrimSpace(sm[2])
		task.Subtasks = append(task.Subtasks, models.SubTask{
			ID:        models.NewID("subtask", subTitle),
			Title:     subTitle,
			Completed: strings.EqualFold(sm[1], "x"),
		})
	}
	return task, i
}

// defaultTitle derives a phase title from a file name: every run of
// non-alphanumeric characters becomes a single space.
func defaultTitle(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, name)
	return strings.Join(strings.Fields(mapped), " ")
}
