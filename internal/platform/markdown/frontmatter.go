package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Frontmatter is a YAML mapping kept as a node tree, so keys written by hand
// keep their order and comments when a document is regenerated.
type Frontmatter struct {
	mapping *yaml.Node
}

func NewFrontmatter() Frontmatter {
	return Frontmatter{mapping: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Split separates a leading "---" fenced YAML block from the body. Content
// without one yields empty frontmatter and the content unchanged.
func Split(content string) (Frontmatter, string, error) {
	if !strings.HasPrefix(content, fence+"\n") {
		return NewFrontmatter(), content, nil
	}
	rest := content[len(fence)+1:]
	var raw, body string
	switch {
	case strings.HasPrefix(rest, fence+"\n"):
		body = rest[len(fence)+1:]
	case strings.Contains(rest, "\n"+fence+"\n"):
		idx := strings.Index(rest, "\n"+fence+"\n")
		raw, body = rest[:idx], rest[idx+len(fence)+2:]
	case strings.HasSuffix(rest, "\n"+fence):
		raw = strings.TrimSuffix(rest, "\n"+fence)
	default:
		return Frontmatter{}, "", errors.New("frontmatter: missing closing ---")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return Frontmatter{}, "", fmt.Errorf("frontmatter: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewFrontmatter(), body, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return Frontmatter{}, "", errors.New("frontmatter: expected a mapping")
	}
	return Frontmatter{mapping: doc.Content[0]}, body, nil
}

// Get decodes the value stored under key into out and reports whether it exists.
func (f Frontmatter) Get(key string, out any) (bool, error) {
	if f.mapping == nil {
		return false, nil
	}
	for i := 0; i+1 < len(f.mapping.Content); i += 2 {
		if f.mapping.Content[i].Value == key {
			return true, f.mapping.Content[i+1].Decode(out)
		}
	}
	return false, nil
}

// Set replaces the value under key in place, or appends the key.
func (f *Frontmatter) Set(key string, value any) error {
	if f.mapping == nil {
		*f = NewFrontmatter()
	}
	var node yaml.Node
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("frontmatter %s: %w", key, err)
	}
	for i := 0; i+1 < len(f.mapping.Content); i += 2 {
		if f.mapping.Content[i].Value == key {
			f.mapping.Content[i+1] = &node
			return nil
		}
	}
	f.mapping.Content = append(f.mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&node,
	)
	return nil
}

// Render writes the frontmatter block followed by body.
func (f Frontmatter) Render(body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	if f.mapping != nil && len(f.mapping.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.mapping); err != nil {
			return "", fmt.Errorf("render frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("render frontmatter: %w", err)
		}
	}
	buf.WriteString(fence + "\n")
	if !strings.HasPrefix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(body)
	return buf.String(), nil
}
