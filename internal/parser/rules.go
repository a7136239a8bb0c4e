package parser

import (
	"regexp"
	"strings"
)

// headingClass is the structural action taken for a heading line.
type headingClass int

const (
	// classSkip consumes the heading with no state change: it neither
	// opens a new etapa nor closes the current one, so checkbox lines
	// after it still attach to the enclosing etapa.
	classSkip headingClass = iota
	// classOpenEtapa closes the current etapa and opens a new one
	// titled with the heading text.
	classOpenEtapa
	// classOpenEtapaFullTitle opens a new etapa that keeps the full
	// heading text as its title, marker glyph and numbering included.
	classOpenEtapaFullTitle
)

// taskHeadingRe matches "🔧 Task N.M: Name" section headings.
var taskHeadingRe = regexp.MustCompile(`^🔧\s+Task\s+[\d.]+:\s*(.+)$`)

// headingRule maps a heading-text predicate to a classification.
type headingRule struct {
	name  string
	match func(string) bool
	class headingClass
}

func prefix(p string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, p) }
}

func exact(v string) func(string) bool {
	return func(s string) bool { return s == v }
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

func any(string) bool { return true }

// level2Rules classify "## " headings.
var level2Rules = []headingRule{
	{"task-block", taskHeadingRe.MatchString, classOpenEtapaFullTitle},
	{"section", any, classOpenEtapa},
}

// level3Rules classify "### " headings (after bold markers are
// stripped). The named entries are known boilerplate subsections that
// must not fragment the surrounding etapa. The catch-all also skips:
// sub-etapa nesting is not supported, so unlisted subsections are
// dropped as well.
var level3Rules = []headingRule{
	{"status-line", prefix("Status:"), classSkip},
	{"objective", exact("Objetivo"), classSkip},
	{"implementation", exact("Implementação"), classSkip},
	{"how-to-test", exact("Como Testar"), classSkip},
	{"files-to-touch", prefix("Arquivos a"), classSkip},
	{"design", prefix("Design da"), classSkip},
	{"code-sample", prefix("Código de"), classSkip},
	{"acceptance", contains("Critérios"), classSkip},
	{"overview", contains("Overview"), classSkip},
	{"task-list", contains("Tasks"), classSkip},
	{"task-list-pt", contains("Tarefas"), classSkip},
	{"overall-status", contains("Status Geral"), classSkip},
	{"unlisted-subsection", any, classSkip},
}

// classify returns the class of the first matching rule. Rule order is
// significant; every table ends with a catch-all.
func classify(rules []headingRule, title string) headingClass {
	for _, r := range rules {
		if r.match(title) {
			return r.class
		}
	}
	return classSkip
}
