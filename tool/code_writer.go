package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CodeWriter writes files inside a working directory.
type CodeWriter struct {
	workdir string
}

// NewCodeWriter creates a writer rooted at workdir.
func NewCodeWriter(workdir string) *CodeWriter {
	return &CodeWriter{workdir: workdir}
}

func (w *CodeWriter) Name() string { return "CodeWriter" }

func (w *CodeWriter) Description() string {
	return "Writes a file in the workspace. The instruction is the relative file path, " +
		"the extra is the complete file content. Existing files are overwritten."
}

// Use implements Tool.
func (w *CodeWriter) Use(_ context.Context, instruction, extra string) (string, error) {
	path, err := w.resolve(instruction)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", wrapError(w.Name(), CodeExecutionError, err)
	}
	if err := os.WriteFile(path, []byte(extra), 0o644); err != nil {
		return "", wrapError(w.Name(), CodeExecutionError, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(extra), strings.TrimSpace(instruction)), nil
}

func (w *CodeWriter) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", NewToolError(w.Name(), "empty file path", CodeInvalidInput)
	}
	if filepath.IsAbs(rel) {
		return "", NewToolError(w.Name(), "file path must be relative", CodeInvalidInput)
	}
	root, err := filepath.Abs(w.workdir)
	if err != nil {
		return "", wrapError(w.Name(), CodeExecutionError, err)
	}
	path := filepath.Join(root, rel)
	if r, err := filepath.Rel(root, path); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", NewToolError(w.Name(), "file path escapes the workspace", CodeInvalidInput)
	}
	return path, nil
}
