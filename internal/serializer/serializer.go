// Package serializer renders the task model back into .mdc markdown
// and validates the output before it reaches disk.
//
// Serialization is only guaranteed to round-trip content that
// originated from this package: the parser drops prose under
// unrecognized level-3 headings, so serialize(parse(x)) != x for
// arbitrary hand-authored markdown. Validate catches gross structural
// loss, not semantic loss.
package serializer

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/frontmatter"
	"github.com/taskflowhq/taskflow/internal/models"
)

// acceptanceHeading is re-emitted above every etapa's task list.
const acceptanceHeading = "### Critérios de Aceite"

var checkboxLineRe = regexp.MustCompile(`^-\s*\[[ xX]\]`)

// Serialize renders a workspace file to full .mdc text: encoded
// frontmatter followed by the markdown body.
func Serialize(file *models.File) (string, error) {
	body := renderContent(file.Content)
	out, err := frontmatter.Encode(file.Metadata, body)
	if err != nil {
		return "", fmt.Errorf("serialize %s: %w", file.FileName, err)
	}
	return out, nil
}

func renderContent(content models.ContentData) string {
	var b strings.Builder

	if content.Title != "" {
		b.WriteString("# ")
		b.WriteString(content.Title)
		b.WriteString("\n\n")
	}

	for _, phase := range content.Phases {
		renderPhase(&b, phase)
	}

	return strings.TrimSpace(b.String()) + "\n"
}

// renderPhase suppresses the phase's own heading when the phase is the
// synthetic per-file root (any title not starting with "Phase" or
// "Fase"); only its etapas are emitted then.
func renderPhase(b *strings.Builder, phase models.Phase) {
	rootPhase := phase.Title != "" &&
		!strings.HasPrefix(phase.Title, "Phase") &&
		!strings.HasPrefix(phase.Title, "Fase")

	if !rootPhase && phase.Title != "" {
		b.WriteString("## ")
		b.WriteString(phase.Title)
		b.WriteString("\n\n")
	}

	for _, etapa := range phase.Etapas {
		renderEtapa(b, etapa)
	}
}

func renderEtapa(b *strings.Builder, etapa models.Etapa) {
	if etapa.Title != "" {
		b.WriteString("## ")
		b.WriteString(etapa.Title)
		b.WriteString("\n\n")
	}

	if len(etapa.Tasks) == 0 {
		return
	}

	b.WriteString(acceptanceHeading)
	b.WriteByte('\n')
	for _, task := range etapa.Tasks {
		b.WriteString("- ")
		b.WriteString(checkbox(task.Completed))
		b.WriteByte(' ')
		b.WriteString(task.Title)
		b.WriteByte('\n')
		for _, st := range task.Subtasks {
			b.WriteString("  - ")
			b.WriteString(checkbox(st.Completed))
			b.WriteByte(' ')
			b.WriteString(st.Title)
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// ValidationResult reports structural problems in serialized output.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate re-decodes serialized .mdc text and checks the invariants a
// written file must hold: an alwaysApply frontmatter key, a non-empty
// body, and at least one heading or checkbox line. It reports problems
// instead of failing.
func Validate(serialized string) ValidationResult {
	var errs []string

	block, body, found := frontmatter.Split([]byte(serialized))

	fields := map[string]any{}
	if found {
		if err := yaml.Unmarshal(block, &fields); err != nil {
			errs = append(errs, fmt.Sprintf("invalid frontmatter: %v", err))
		}
	}
	if _, ok := fields["alwaysApply"]; !ok {
		errs = append(errs, "missing required field: alwaysApply")
	}

	if strings.TrimSpace(body) == "" {
		errs = append(errs, "missing or empty content")
	} else if !hasStructure(body) {
		errs = append(errs, "content lacks markdown structure (no headings or tasks found)")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func hasStructure(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || checkboxLineRe.MatchString(trimmed) {
			return true
		}
	}
	return false
}
