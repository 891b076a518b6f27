package markdown

import "strings"

// Markers delimit a generated region inside hand-edited Markdown.
type Markers struct {
	Start string
	End   string
}

// ReplaceBlock swaps the region between m.Start and the next m.End for
// generated. When body has no complete region the block is appended. The
// bool reports whether an existing region was replaced.
func ReplaceBlock(body string, m Markers, generated string) (string, bool) {
	block := m.Start + "\n" + strings.TrimRight(generated, "\n") + "\n" + m.End

	if start := strings.Index(body, m.Start); start >= 0 {
		if end := strings.Index(body[start:], m.End); end >= 0 {
			end += start + len(m.End)
			return body[:start] + block + body[end:], true
		}
	}

	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n", false
	case strings.HasSuffix(body, "\n\n"):
		return body + block + "\n", false
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n", false
	default:
		return body + "\n\n" + block + "\n", false
	}
}
