package core

import (
	"fmt"
	"unicode/utf8"
)

// MaxNameBytes is the width of the sender field on the wire. Agent names are
// limited to it so every agent can be identified by the mailbox of its peers.
const MaxNameBytes = 12

// Profile describes a relation or tool as presented to a brain.
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ValidateName reports whether name can identify an agent.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxNameBytes {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidName, name, MaxNameBytes)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
		}
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidName, name)
	}
	return nil
}

// TruncateName shortens name to at most MaxNameBytes without splitting a rune.
func TruncateName(name string) string {
	if len(name) <= MaxNameBytes {
		return name
	}
	cut := MaxNameBytes
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
