package out

import "context"

// NotebookStore reads and writes raw notebook bytes; it also serves the
// Markdown export target.
type NotebookStore interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}
