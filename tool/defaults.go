package tool

import "io"

// Defaults returns the tools a civilization's leader starts with.
func Defaults(workdir string) []Tool {
	return []Tool{
		NewTerminal(workdir),
		NewCodeWriter(workdir),
		NewBrowser(),
	}
}

// CloseAll closes every tool that holds resources and returns the first error.
func CloseAll(tools []Tool) error {
	var first error
	for _, t := range tools {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
