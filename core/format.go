package core

import (
	"fmt"
	"strings"
)

// Separator splits the header of a formatted result from its body.
const Separator = "===================="

const (
	errorHeader        = "error message"
	announcementHeader = "announcement"
)

// FormatError renders an action failure as a result text.
func FormatError(err error) string {
	return errorHeader + "\n" + Separator + "\n" + err.Error()
}

// FormatAnnouncement renders a side-effect notice as a result text.
func FormatAnnouncement(format string, args ...any) string {
	return announcementHeader + "\n" + Separator + "\n" + fmt.Sprintf(format, args...)
}

// FormatTalk renders what an agent said under its name.
func FormatTalk(name, message string) string {
	return fmt.Sprintf("%s's talk\n%s\n%s", name, Separator, message)
}

// IsError reports whether result was produced by FormatError.
func IsError(result string) bool {
	return strings.HasPrefix(result, errorHeader+"\n"+Separator)
}

// Body strips a formatted header and returns the text after the separator.
// Unformatted text is returned unchanged.
func Body(result string) string {
	if _, body, ok := strings.Cut(result, Separator+"\n"); ok {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(result)
}
