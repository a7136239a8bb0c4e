// Package frontmatter encodes and decodes the YAML metadata block
// framed by --- delimiters at the top of an .mdc document.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/models"
)

const delim = "---"

// stringList unmarshals either a YAML scalar or a sequence of scalars,
// preserving order. The globs field historically appears in both forms.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = stringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = stringList(v)
		return nil
	default:
		return fmt.Errorf("frontmatter: globs must be a string or a list of strings")
	}
}

type document struct {
	Description *string    `yaml:"description"`
	Globs       stringList `yaml:"globs"`
	AlwaysApply bool       `yaml:"alwaysApply"`
	Type        string     `yaml:"type"`
	Status      string     `yaml:"status"`
	Priority    string     `yaml:"priority"`
	Phase       string     `yaml:"phase"`
	Tags        []string   `yaml:"tags"`
}

// Split separates the raw YAML block (between leading --- delimiters)
// from the markdown body. found is false when there is no properly
// framed block; the whole input is then returned as body.
func Split(raw []byte) (block []byte, body string, found bool) {
	trimmed := bytes.TrimLeft(raw, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(raw), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(raw), false
	}

	block = rest[:idx]
	body = strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return block, body, true
}

// Decode splits raw into metadata and markdown body. A missing opening
// delimiter, or an opening delimiter without a closing one, yields zero
// metadata and the full input as body. Malformed YAML inside a properly
// framed block is an error, attributed to the file by the caller.
func Decode(raw []byte) (models.Metadata, string, error) {
	block, body, found := Split(raw)
	if !found {
		return models.Metadata{}, body, nil
	}

	var doc document
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return models.Metadata{}, "", fmt.Errorf("frontmatter: decode: %w", err)
	}

	return models.Metadata{
		Description: doc.Description,
		Globs:       []string(doc.Globs),
		AlwaysApply: doc.AlwaysApply,
		Type:        doc.Type,
		Status:      doc.Status,
		Priority:    doc.Priority,
		Phase:       doc.Phase,
		Tags:        doc.Tags,
	}, body, nil
}

// Encode re-emits the frontmatter block followed by body. Field order
// is fixed: description, globs, alwaysApply, type, status, priority,
// phase, tags. Optional fields are omitted when unset; alwaysApply is
// always present; tags are omitted when empty.
func Encode(meta models.Metadata, body string) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	if meta.Description != nil {
		appendEntry(root, "description", scalar(*meta.Description))
	}
	if meta.Globs != nil {
		appendEntry(root, "globs", sequence(meta.Globs))
	}
	appendEntry(root, "alwaysApply", boolScalar(meta.AlwaysApply))
	if meta.Type != "" {
		appendEntry(root, "type", scalar(meta.Type))
	}
	if meta.Status != "" {
		appendEntry(root, "status", scalar(meta.Status))
	}
	if meta.Priority != "" {
		appendEntry(root, "priority", scalar(meta.Priority))
	}
	if meta.Phase != "" {
		appendEntry(root, "phase", scalar(meta.Phase))
	}
	if len(meta.Tags) > 0 {
		appendEntry(root, "tags", sequence(meta.Tags))
	}

	block, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}

	var b strings.Builder
	b.WriteString(delim)
	b.WriteByte('\n')
	b.Write(block)
	b.WriteString(delim)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String(), nil
}

func appendEntry(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}

func scalar(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	if v == "" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func boolScalar(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", v)}
}

func sequence(vs []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range vs {
		n.Content = append(n.Content, scalar(v))
	}
	return n
}
