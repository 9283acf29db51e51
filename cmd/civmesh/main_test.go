package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/civmesh/config"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/tracer"
)

func TestRenderRaw(t *testing.T) {
	noRender = true
	defer func() { noRender = false }()
	assert.Equal(t, "# Title", render("# Title"))
}

func TestRenderMarkdown(t *testing.T) {
	out := render("# Title\n\nSome **bold** text.")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	_, err := newModel(context.Background(), config.LLMConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestNewModelOpenAI(t *testing.T) {
	m, err := newModel(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.Info().Name)
}

func TestNewSinksConsoleAndLog(t *testing.T) {
	cfg := config.Default()
	cfg.Trace.Log = true

	var console bytes.Buffer
	sinks, closers, err := newSinks(context.Background(), cfg, logging.NoOpLogger{}, &console)
	require.NoError(t, err)
	assert.Empty(t, closers)
	require.Len(t, sinks, 2)
	assert.IsType(t, &tracer.ConsoleSink{}, sinks[0])
	assert.IsType(t, &tracer.LogSink{}, sinks[1])
}

func TestNewToolsCreatesWorkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "playground")
	tools, err := newTools(config.ToolsConfig{Workdir: dir})
	require.NoError(t, err)

	names := make([]string, len(tools))
	for i, tl := range tools {
		names[i] = tl.Name()
	}
	assert.Equal(t, []string{"Terminal", "CodeWriter"}, names)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLoggerHonoursVerbose(t *testing.T) {
	verbose = true
	defer func() { verbose = false }()

	cfg := config.Default()
	cfg.Logging.Backend = "zap"
	_, ok := newLogger(cfg).(*logging.ZapAdapter)
	assert.True(t, ok)
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func stubSinks(t *testing.T) (*closeCounter, *int) {
	t.Helper()
	c := &closeCounter{}
	opened := 0
	openSinks = func(context.Context, *config.Config, logging.Logger, io.Writer) ([]tracer.Sink, []io.Closer, error) {
		opened++
		return []tracer.Sink{tracer.NewRecorder()}, []io.Closer{c}, nil
	}
	t.Cleanup(func() { openSinks = newSinks })
	return c, &opened
}

func TestBuildSessionReleasesSinksOnFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"workdir", func(cfg *config.Config) { cfg.Tools.Workdir = filepath.Join(blocker, "playground") }},
		{"leader", func(cfg *config.Config) { cfg.Leader.Name = "AVeryLongLeaderName" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closer, opened := stubSinks(t)
			cfg := config.Default()
			cfg.LLM.APIKey = "sk-test"
			cfg.Tools.Workdir = filepath.Join(t.TempDir(), "playground")
			tt.mutate(cfg)

			_, err := buildSession(context.Background(), cfg, io.Discard)
			require.Error(t, err)
			assert.Equal(t, 1, *opened)
			assert.Equal(t, 1, closer.closed)
		})
	}
}

func TestBuildSessionChecksMailboxBeforeOpeningSinks(t *testing.T) {
	closer, opened := stubSinks(t)
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-test"
	cfg.Mailbox.MessageTypes = []string{"Bogus"}

	_, err := buildSession(context.Background(), cfg, io.Discard)
	require.Error(t, err)
	assert.Zero(t, *opened)
	assert.Zero(t, closer.closed)
}
