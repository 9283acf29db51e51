package tool

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// DefaultAllowedImports is the set of packages built tools may import.
// Packages with filesystem, process or network access are not included.
var DefaultAllowedImports = []string{
	"bytes",
	"encoding/base64",
	"encoding/json",
	"errors",
	"fmt",
	"math",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
}

// DefaultCodedTimeout bounds a single call into a built tool.
const DefaultCodedTimeout = 30 * time.Second

var goFence = regexp.MustCompile("(?s)```(?:go|golang)?\\s*\n(.*?)```")

type runFunc func(instruction, extra string) (string, error)

// Coded is a tool whose behaviour is Go source interpreted with yaegi.
//
// The source must declare, in package main:
//
//	func Run(instruction, extra string) (string, error)
//
// A variant returning only a string is accepted as well.
type Coded struct {
	name        string
	description string
	source      string
	timeout     time.Duration

	mu  sync.Mutex
	run runFunc
}

// CodedOptions configures coded tools.
type CodedOptions struct {
	AllowedImports []string
	Timeout        time.Duration
}

// NewCoded interprets source and returns the resulting tool. Build errors
// are returned as *ToolError with code BUILD_ERROR.
func NewCoded(name, description, source string, optFns ...func(o *CodedOptions)) (*Coded, error) {
	opts := CodedOptions{
		AllowedImports: DefaultAllowedImports,
		Timeout:        DefaultCodedTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	code := ExtractGoSource(source)
	if err := checkImports(code, opts.AllowedImports); err != nil {
		return nil, wrapError(name, CodeBuildError, err)
	}

	run, err := interpret(code)
	if err != nil {
		return nil, wrapError(name, CodeBuildError, err)
	}

	return &Coded{
		name:        name,
		description: description,
		source:      code,
		timeout:     opts.Timeout,
		run:         run,
	}, nil
}

// CodedFactory returns a Factory producing coded tools.
func CodedFactory(optFns ...func(o *CodedOptions)) Factory {
	return func(_ context.Context, name, description, source string) (Tool, error) {
		return NewCoded(name, description, source, optFns...)
	}
}

func (c *Coded) Name() string        { return c.name }
func (c *Coded) Description() string { return c.description }

// Source returns the interpreted Go source.
func (c *Coded) Source() string { return c.source }

// Use implements Tool. Calls are serialized; an interpreted call that
// outlives its deadline keeps running in the background until it returns.
func (c *Coded) Use(ctx context.Context, instruction, extra string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)

	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := c.run(instruction, extra)
		ch <- result{out: out, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", wrapError(c.name, CodeExecutionError, r.err)
		}
		return r.out, nil
	case <-ctx.Done():
		return "", NewToolError(c.name, fmt.Sprintf("execution stopped: %v", ctx.Err()), CodeTimeout)
	}
}

// ExtractGoSource returns the body of the first Go code fence in s, or s
// itself when it has none.
func ExtractGoSource(s string) string {
	if m := goFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func wrapPackage(code string) string {
	if strings.HasPrefix(code, "package ") || strings.Contains(code, "\npackage ") {
		return code
	}
	return "package main\n\n" + code
}

func checkImports(code string, allowed []string) error {
	f, err := parser.ParseFile(token.NewFileSet(), "tool.go", wrapPackage(code), parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse source: %w", err)
	}
	var forbidden []string
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return fmt.Errorf("parse import %s: %w", imp.Path.Value, err)
		}
		if !slices.Contains(allowed, path) {
			forbidden = append(forbidden, path)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports %v (allowed: %v)", forbidden, allowed)
	}
	return nil
}

func interpret(code string) (fn runFunc, err error) {
	// yaegi panics on some malformed programs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib: %w", err)
	}
	if _, err := i.Eval(wrapPackage(code)); err != nil {
		return nil, fmt.Errorf("evaluate source: %w", err)
	}
	v, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("func Run not found: %w", err)
	}

	switch f := v.Interface().(type) {
	case func(string, string) (string, error):
		return f, nil
	case func(string, string) string:
		return func(instruction, extra string) (string, error) { return f(instruction, extra), nil }, nil
	default:
		return nil, fmt.Errorf("func Run has signature %s, want func(instruction, extra string) (string, error)", v.Type())
	}
}
