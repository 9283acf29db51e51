package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireToolError(t *testing.T, err error, code string) *ToolError {
	t.Helper()
	var te *ToolError
	require.True(t, errors.As(err, &te), "expected *ToolError, got %T: %v", err, err)
	assert.Equal(t, code, te.Code)
	return te
}

func TestGreetingAndFormat(t *testing.T) {
	assert.Equal(t,
		"Calc's result\n====\nYou have built a tool named Calc. Test if you can use the tool well.",
		Greeting("Calc"))
	assert.Equal(t, "Calc's result\n====\n42", Format("Calc", "42"))
}

func TestToolError(t *testing.T) {
	cause := errors.New("boom")
	err := wrapError("Calc", CodeExecutionError, cause)
	assert.Equal(t, "tool error [EXECUTION_ERROR] in Calc: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "tool error in Calc: bad", (&ToolError{Tool: "Calc", Message: "bad"}).Error())
}

func TestFunctionTool(t *testing.T) {
	upper := NewFunctionTool("Upper", "Upper-cases the instruction.",
		func(_ context.Context, instruction, extra string) (string, error) {
			if instruction == "" {
				return "", errors.New("empty")
			}
			return strings.ToUpper(instruction) + extra, nil
		})

	assert.Equal(t, "Upper", upper.Name())
	assert.Equal(t, "Upper", Profile(upper).Name)

	out, err := upper.Use(context.Background(), "abc", "!")
	require.NoError(t, err)
	assert.Equal(t, "ABC!", out)

	_, err = upper.Use(context.Background(), "", "")
	te := requireToolError(t, err, CodeExecutionError)
	assert.Equal(t, "Upper", te.Tool)

	passthrough := NewFunctionTool("P", "", func(context.Context, string, string) (string, error) {
		return "", NewToolError("P", "bad input", CodeInvalidInput)
	})
	_, err = passthrough.Use(context.Background(), "x", "")
	requireToolError(t, err, CodeInvalidInput)
}

func TestTerminal(t *testing.T) {
	dir := t.TempDir()
	term := NewTerminal(dir)

	t.Run("runs backticked command in workdir", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o644))
		out, err := term.Use(context.Background(), "Please run `cat hello.txt`", "")
		require.NoError(t, err)
		assert.Equal(t, "hi", out)
	})

	t.Run("missing backticks", func(t *testing.T) {
		_, err := term.Use(context.Background(), "ls -la", "")
		requireToolError(t, err, CodeInvalidInput)
	})

	t.Run("non-zero exit is a result", func(t *testing.T) {
		out, err := term.Use(context.Background(), "`echo oops; exit 3`", "")
		require.NoError(t, err)
		assert.Equal(t, "oops\n(exit status 3)", out)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := NewTerminal(dir, func(o *TerminalOptions) { o.Timeout = 50 * time.Millisecond })
		_, err := slow.Use(context.Background(), "`sleep 5`", "")
		requireToolError(t, err, CodeTimeout)
	})
}

func TestCodeWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewCodeWriter(dir)

	out, err := w.Use(context.Background(), "pkg/main.go", "package main\n")
	require.NoError(t, err)
	assert.Equal(t, "Wrote 13 bytes to pkg/main.go", out)

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	for _, path := range []string{"", "../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		_, err := w.Use(context.Background(), path, "x")
		requireToolError(t, err, CodeInvalidInput)
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

const reverseSource = "Here is the tool:\n```go\n" + `package main

import "strings"

func Run(instruction, extra string) (string, error) {
	r := []rune(instruction)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return strings.ToUpper(string(r)) + extra, nil
}
` + "```\n"

func TestCoded(t *testing.T) {
	t.Run("build and use", func(t *testing.T) {
		tl, err := CodedFactory()(context.Background(), "Reverse", "Reverses text.", reverseSource)
		require.NoError(t, err)
		assert.Equal(t, "Reverse", tl.Name())
		assert.Equal(t, "Reverses text.", tl.Description())

		out, err := tl.Use(context.Background(), "abc", "!")
		require.NoError(t, err)
		assert.Equal(t, "CBA!", out)
	})

	t.Run("string-only signature without package clause", func(t *testing.T) {
		tl, err := NewCoded("Echo", "", `func Run(instruction, extra string) string { return instruction + extra }`)
		require.NoError(t, err)
		out, err := tl.Use(context.Background(), "a", "b")
		require.NoError(t, err)
		assert.Equal(t, "ab", out)
	})

	t.Run("forbidden import", func(t *testing.T) {
		_, err := NewCoded("Bad", "", "package main\nimport \"os/exec\"\nfunc Run(a, b string) string { exec.Command(a); return \"\" }")
		te := requireToolError(t, err, CodeBuildError)
		assert.Contains(t, te.Message, "os/exec")
	})

	t.Run("missing Run", func(t *testing.T) {
		_, err := NewCoded("Bad", "", "package main\nfunc Other() {}")
		requireToolError(t, err, CodeBuildError)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := NewCoded("Bad", "", "package main\nfunc Run(")
		requireToolError(t, err, CodeBuildError)
	})

	t.Run("runtime error", func(t *testing.T) {
		tl, err := NewCoded("Fail", "", "package main\nimport \"errors\"\nfunc Run(a, b string) (string, error) { return \"\", errors.New(\"nope\") }")
		require.NoError(t, err)
		_, err = tl.Use(context.Background(), "", "")
		te := requireToolError(t, err, CodeExecutionError)
		assert.Contains(t, te.Message, "nope")
	})
}

func TestExtractGoSource(t *testing.T) {
	assert.Equal(t, "package main", ExtractGoSource("text\n```go\npackage main\n```\nmore"))
	assert.Equal(t, "x := 1", ExtractGoSource("```\nx := 1\n```"))
	assert.Equal(t, "func Run() {}", ExtractGoSource("  func Run() {}\n"))
}

func TestBrowserRejectsInvalidInput(t *testing.T) {
	b := NewBrowser()
	defer func() { assert.NoError(t, b.Close()) }()

	cases := []struct{ command, extra string }{
		{"fly", ""},
		{"open", ""},
		{"click", ""},
		{"scroll", "down"},
		{"scroll", "1,x"},
		{"write", "not json"},
		{"write", "{}"},
	}
	for _, c := range cases {
		_, err := b.Use(context.Background(), c.command, c.extra)
		requireToolError(t, err, CodeInvalidInput)
	}

	// Closing without a page is a no-op and starts nothing.
	out, err := b.Use(context.Background(), "close", "")
	require.NoError(t, err)
	assert.Equal(t, "Closed the page", out)
	assert.Nil(t, b.browser)
}

func TestParseDelta(t *testing.T) {
	dx, dy, err := parseDelta("10, -20")
	require.NoError(t, err)
	assert.Equal(t, 10.0, dx)
	assert.Equal(t, -20.0, dy)
}

func TestDefaults(t *testing.T) {
	tools := Defaults(t.TempDir())
	names := make([]string, len(tools))
	for i, tl := range tools {
		names[i] = tl.Name()
	}
	assert.Equal(t, []string{"Terminal", "CodeWriter", "Browser"}, names)
	assert.NoError(t, CloseAll(tools))
}
