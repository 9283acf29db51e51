// Package wire implements the binary framing exchanged between agent mailboxes.
//
// Every message is a fixed 24 byte big-endian header followed by two bodies:
//
//	instruction_length:4 | extra_length:4 | sender:12 | type:4 | instruction | extra
//
// The sender field is right padded with NUL bytes.
package wire
