package tool

import (
	"context"
	"errors"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Errors returned by the function are normalized to *ToolError with code
// EXECUTION_ERROR unless the function already returned a *ToolError.
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	fn          func(ctx context.Context, instruction, extra string) (string, error)
}

// NewFunctionTool constructs a FunctionTool.
//
// Example:
//
//	upper := NewFunctionTool(
//	  "Upper",
//	  "Upper-cases the instruction.",
//	  func(_ context.Context, instruction, _ string) (string, error) {
//	    return strings.ToUpper(instruction), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	fn func(ctx context.Context, instruction, extra string) (string, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, fn: fn}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Use implements Tool.
func (t *FunctionTool) Use(ctx context.Context, instruction, extra string) (string, error) {
	out, err := t.fn(ctx, instruction, extra)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return "", te
		}
		return "", wrapError(t.name, CodeExecutionError, err)
	}
	return out, nil
}
