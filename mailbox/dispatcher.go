package mailbox

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/wire"
)

// Dispatcher sends frames on behalf of one agent.
type Dispatcher struct {
	sender string
	codec  *wire.Codec
	dialer net.Dialer
	logger logging.Logger
}

// NewDispatcher creates a dispatcher for sender using the codec and dial
// timeout of cfg.
func NewDispatcher(sender string, cfg Config, logger logging.Logger) (*Dispatcher, error) {
	if err := core.ValidateName(sender); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Dispatcher{
		sender: sender,
		codec:  cfg.Codec(),
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
		logger: logger,
	}, nil
}

// Sender returns the name written into every frame.
func (d *Dispatcher) Sender() string {
	return d.sender
}

// Send delivers one Default frame to addr and closes the connection.
func (d *Dispatcher) Send(ctx context.Context, addr, instruction, extra string) error {
	return d.SendType(ctx, addr, wire.Default, instruction, extra)
}

// SendType delivers one frame of the given type to addr.
func (d *Dispatcher) SendType(ctx context.Context, addr string, typ wire.MessageType, instruction, extra string) error {
	frame, err := d.codec.Encode(wire.Message{
		Sender:      d.sender,
		Type:        typ,
		Instruction: instruction,
		Extra:       extra,
	})
	if err != nil {
		return err
	}

	conn, err := d.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else if d.dialer.Timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(d.dialer.Timeout))
	}

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write to %s: %w", addr, err)
	}

	d.logger.Debug("Message sent", "sender", d.sender, "addr", addr, "bytes", len(frame))
	return nil
}
