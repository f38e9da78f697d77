package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SourceFile represents a graph document with its content and metadata
type SourceFile struct {
	Name    string   // Display name (e.g., "graph.yaml", "<stdin>")
	Path    string   // Full file path (empty for stdin and inline documents)
	Content string   // The document text
	lines   []string // Cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewInlineSource creates a source for a document built in code
func NewInlineSource(content string) *SourceFile {
	return NewSourceFile("<inline>", "", content)
}

// NewStdinSource creates a source file for stdin input
func NewStdinSource(r io.Reader) (*SourceFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading graph from stdin")
	}
	return NewSourceFile("<stdin>", "", string(data)), nil
}

// ReadFile loads a graph document from disk; "-" reads stdin.
func ReadFile(filePath string) (*SourceFile, error) {
	if filePath == "-" {
		return NewStdinSource(os.Stdin)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading graph %s", filePath)
	}
	return NewSourceFile(filepath.Base(filePath), filePath, string(data)), nil
}

// Lines returns the source split into lines (cached)
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name)
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}

// Location formats a 1-based line as "path:line: text".
func (sf *SourceFile) Location(line int) string {
	lines := sf.Lines()
	if line < 1 || line > len(lines) {
		return sf.DisplayPath()
	}
	return fmt.Sprintf("%s:%d: %s", sf.DisplayPath(), line, strings.TrimSpace(lines[line-1]))
}
