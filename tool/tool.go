// Package tool implements the capabilities an agent can Use or Build.
//
// A tool receives an instruction and an extra string and returns text. Tools
// that hold resources (browsers, interpreters) also implement io.Closer.
// Failures are reported as *ToolError so agents can tell tool failures from
// their own.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/civmesh/core"
)

// Tool defines the interface for extending agent capabilities.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Describe the expected instruction and extra format in the description
//   - Handle errors gracefully
//   - Be thread-safe if shared between agents
type Tool interface {
	// Name returns the identifier agents use to refer to this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the brain to help it decide when and how to use the tool.
	Description() string

	// Use runs the tool.
	Use(ctx context.Context, instruction, extra string) (string, error)
}

// Factory builds a new tool from a Build action: the target name, the
// instruction as description, and the extra as source.
type Factory func(ctx context.Context, name, description, source string) (Tool, error)

// Profile returns the brain-facing description of t.
func Profile(t Tool) core.Profile {
	return core.Profile{Name: t.Name(), Description: t.Description()}
}

// Greeting is the result of building a tool.
func Greeting(name string) string {
	return fmt.Sprintf("%s's result\n%s\nYou have built a tool named %s. Test if you can use the tool well.", name, core.Separator, name)
}

// Format renders the result of using a tool.
func Format(name, result string) string {
	return fmt.Sprintf("%s's result\n%s\n%s", name, core.Separator, result)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
	Err     error  `json:"-"`       // Underlying cause, if any
}

// Error codes.
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeExecutionError = "EXECUTION_ERROR"
	CodeBuildError     = "BUILD_ERROR"
	CodeTimeout        = "TIMEOUT"
)

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

func wrapError(tool, code string, err error) *ToolError {
	return &ToolError{Tool: tool, Message: err.Error(), Code: code, Err: err}
}
