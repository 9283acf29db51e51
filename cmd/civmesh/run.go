package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/hupe1980/civmesh/config"
	"github.com/hupe1980/civmesh/logging"
)

const prompt = ">>> "

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := newSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	return solveOne(ctx, s, strings.Join(args, " "), cmd.OutOrStdout())
}

func runREPL(parent context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	s, err := newSession(ctx, out)
	if err != nil {
		return err
	}
	defer s.Close()

	go watchLogLevel(ctx, s.logger)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		problem := strings.TrimSpace(scanner.Text())
		switch problem {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := solveOne(ctx, s, problem, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func solveOne(ctx context.Context, s *session, problem string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answer, err := s.civ.Solve(ctx, problem)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no answer within %s", timeout)
		}
		return err
	}
	fmt.Fprintln(out, render(answer))
	return nil
}

func render(markdown string) string {
	if noRender {
		return markdown
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}

// watchLogLevel applies level changes of the config file while the prompt runs.
func watchLogLevel(ctx context.Context, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok || verbose {
		return
	}
	err := config.Watch(ctx, configPath, func(cfg *config.Config) {
		setter.SetLevel(cfg.LoggerConfig().Level)
		logger.Debug("Log level updated", "level", cfg.Logging.Level)
	}, func(o *config.WatchOptions) { o.Logger = logger })
	if err != nil {
		logger.Debug("Config is not watched", "path", configPath, "error", err)
	}
}
