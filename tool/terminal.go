package tool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultTerminalTimeout bounds a single command.
const DefaultTerminalTimeout = 60 * time.Second

var backticked = regexp.MustCompile("`([^`]+)`")

// Terminal runs shell commands inside a working directory.
type Terminal struct {
	workdir string
	timeout time.Duration
	shell   string
}

// TerminalOptions configures a Terminal.
type TerminalOptions struct {
	Timeout time.Duration
	// Shell is invoked as `<Shell> -c <command>`.
	Shell string
}

// NewTerminal creates a terminal rooted at workdir.
func NewTerminal(workdir string, optFns ...func(o *TerminalOptions)) *Terminal {
	opts := TerminalOptions{
		Timeout: DefaultTerminalTimeout,
		Shell:   "sh",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Terminal{workdir: workdir, timeout: opts.Timeout, shell: opts.Shell}
}

func (t *Terminal) Name() string { return "Terminal" }

func (t *Terminal) Description() string {
	return "Runs a single shell command in the workspace and returns its combined output. " +
		"Put the command in the instruction surrounded by backticks, e.g. `ls -la`. Extra is ignored."
}

// Use implements Tool.
func (t *Terminal) Use(ctx context.Context, instruction, _ string) (string, error) {
	m := backticked.FindStringSubmatch(instruction)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", NewToolError(t.Name(), "no command found; surround the command with backticks", CodeInvalidInput)
	}
	command := strings.TrimSpace(m[1])

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.shell, "-c", command)
	cmd.Dir = t.workdir
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", NewToolError(t.Name(), fmt.Sprintf("command timed out after %s", t.timeout), CodeTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exits are results the brain should see.
			return fmt.Sprintf("%s\n(exit status %d)", strings.TrimRight(string(out), "\n"), exitErr.ExitCode()), nil
		}
		return "", wrapError(t.Name(), CodeExecutionError, err)
	}
	return string(out), nil
}
