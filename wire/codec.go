package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/hupe1980/civmesh/core"
)

// MessageType tags the purpose of a message.
type MessageType uint32

const (
	// Default is the only message type currently exchanged between agents.
	Default MessageType = 1
)

// String implements fmt.Stringer.
func (t MessageType) String() string {
	switch t {
	case Default:
		return "Default"
	default:
		return fmt.Sprintf("MessageType(%d)", uint32(t))
	}
}

// ParseMessageType resolves a message type by name.
func ParseMessageType(name string) (MessageType, error) {
	switch name {
	case "Default", "default":
		return Default, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, name)
	}
}

const (
	// SenderSize is the width of the sender field.
	SenderSize = core.MaxNameBytes
	// HeaderSize is the size of the fixed part of a frame.
	HeaderSize = 4 + 4 + SenderSize + 4
	// DefaultMaxBodySize caps the declared length of each body.
	DefaultMaxBodySize = 16 << 20
)

var (
	// ErrMalformedMessage is returned for frames that are truncated, oversized
	// or carry an invalid sender field.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownMessageType is returned for a type outside the codec's set.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Message is one decoded frame.
type Message struct {
	Sender      string
	Type        MessageType
	Instruction string
	Extra       string
}

// Codec encodes and decodes frames. The zero value is not usable, use NewCodec.
type Codec struct {
	types       map[MessageType]struct{}
	maxBodySize uint32
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMaxBodySize sets the largest instruction or extra length accepted by Decode.
func WithMaxBodySize(n uint32) CodecOption {
	return func(c *Codec) {
		c.maxBodySize = n
	}
}

// NewCodec creates a codec recognizing the given message types. With no
// types, only Default is recognized.
func NewCodec(types []MessageType, opts ...CodecOption) *Codec {
	if len(types) == 0 {
		types = []MessageType{Default}
	}
	c := &Codec{
		types:       make(map[MessageType]struct{}, len(types)),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, t := range types {
		c.types[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultCodec recognizes Default messages only.
var DefaultCodec = NewCodec(nil)

// Known reports whether t is recognized by the codec.
func (c *Codec) Known(t MessageType) bool {
	_, ok := c.types[t]
	return ok
}

// Encode renders a frame. Senders longer than SenderSize are rejected; callers
// shorten names before they reach the wire.
func (c *Codec) Encode(m Message) ([]byte, error) {
	if len(m.Sender) > SenderSize {
		return nil, fmt.Errorf("%w: sender %q exceeds %d bytes", ErrMalformedMessage, m.Sender, SenderSize)
	}
	if !c.Known(m.Type) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, uint32(m.Type))
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(m.Instruction)+len(m.Extra))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(m.Instruction)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(m.Extra)))
	copy(buf[8:8+SenderSize], m.Sender)
	binary.BigEndian.PutUint32(buf[8+SenderSize:HeaderSize], uint32(m.Type))
	buf = append(buf, m.Instruction...)
	buf = append(buf, m.Extra...)
	return buf, nil
}

// Write encodes m and writes it to w.
func (c *Codec) Write(w io.Writer, m Message) error {
	frame, err := c.Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Decode reads exactly one frame from r.
func (c *Codec) Decode(r io.Reader) (Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("%w: header: %v", ErrMalformedMessage, err)
	}

	instLen := binary.BigEndian.Uint32(header[0:4])
	extraLen := binary.BigEndian.Uint32(header[4:8])
	sender, err := parseSender(header[8 : 8+SenderSize])
	if err != nil {
		return Message{}, err
	}
	typ := MessageType(binary.BigEndian.Uint32(header[8+SenderSize : HeaderSize]))
	if !c.Known(typ) {
		return Message{}, fmt.Errorf("%w: %d from %q", ErrUnknownMessageType, uint32(typ), sender)
	}
	if instLen > c.maxBodySize || extraLen > c.maxBodySize {
		return Message{}, fmt.Errorf("%w: body of %d+%d bytes exceeds %d", ErrMalformedMessage, instLen, extraLen, c.maxBodySize)
	}

	body := make([]byte, int(instLen)+int(extraLen))
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("%w: body: %v", ErrMalformedMessage, err)
	}

	return Message{
		Sender:      sender,
		Type:        typ,
		Instruction: string(body[:instLen]),
		Extra:       string(body[instLen:]),
	}, nil
}

// parseSender strips the NUL padding. Padding must be trailing only.
func parseSender(field []byte) (string, error) {
	name := bytes.TrimRight(field, "\x00")
	if len(name) == 0 {
		return "", fmt.Errorf("%w: empty sender", ErrMalformedMessage)
	}
	if bytes.IndexByte(name, 0) >= 0 || !utf8.Valid(name) {
		return "", fmt.Errorf("%w: invalid sender field %q", ErrMalformedMessage, field)
	}
	return string(name), nil
}
