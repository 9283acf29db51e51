package mailbox

import (
	"fmt"
	"time"

	"github.com/hupe1980/civmesh/wire"
)

// Config describes where mailboxes bind and which frames they accept.
type Config struct {
	Host         string             `yaml:"host"`
	PortStart    int                `yaml:"port_start"`
	PortRange    int                `yaml:"port_range"`
	MessageTypes []wire.MessageType `yaml:"-"`
	// ReadTimeout bounds the time spent decoding one inbound frame. Zero disables it.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// DialTimeout bounds outbound connection setup. Zero disables it.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DefaultConfig returns the loopback range 50000..50009.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		PortStart:    50000,
		PortRange:    10,
		MessageTypes: []wire.MessageType{wire.Default},
		ReadTimeout:  30 * time.Second,
		DialTimeout:  5 * time.Second,
	}
}

// Validate checks the port range.
func (c Config) Validate() error {
	if c.PortRange < 1 {
		return fmt.Errorf("port range must be at least 1, got %d", c.PortRange)
	}
	if c.PortStart < 1 || c.PortStart+c.PortRange-1 > 65535 {
		return fmt.Errorf("port range [%d, %d) is outside 1..65535", c.PortStart, c.PortStart+c.PortRange)
	}
	return nil
}

// Codec returns a codec recognizing the configured message types.
func (c Config) Codec() *wire.Codec {
	return wire.NewCodec(c.MessageTypes)
}
