package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/wire"
)

var (
	// ErrNoAvailablePort is returned when no port of the configured range can be bound.
	ErrNoAvailablePort = errors.New("no available port")
	// ErrUnknownSender is returned for frames whose sender is not a relation of the owner.
	ErrUnknownSender = errors.New("unknown sender")
	// ErrClosed is returned by Wait and Serve once the mailbox has been closed.
	ErrClosed = errors.New("mailbox closed")
)

// Handler receives the messages accepted by Serve.
type Handler interface {
	// Knows reports whether name may send messages to this mailbox.
	Knows(name string) bool
	// Receive processes one message. The accept loop is blocked until it returns.
	Receive(ctx context.Context, msg wire.Message) error
}

// Options configures a Mailbox.
type Options struct {
	Logger logging.Logger
	// OnError is called for every frame Serve drops.
	OnError func(err error)
}

// Mailbox is the listening endpoint of one agent.
type Mailbox struct {
	listener    *net.TCPListener
	codec       *wire.Codec
	readTimeout time.Duration
	logger      logging.Logger
	onError     func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

// Bind listens on the first free port of [cfg.PortStart, cfg.PortStart+cfg.PortRange).
func Bind(cfg Config, optFns ...func(o *Options)) (*Mailbox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	var lastErr error
	for port := cfg.PortStart; port < cfg.PortStart+cfg.PortRange; port++ {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
		l, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		opts.Logger.Debug("Mailbox bound", "addr", addr)
		return &Mailbox{
			listener:    l.(*net.TCPListener),
			codec:       cfg.Codec(),
			readTimeout: cfg.ReadTimeout,
			logger:      opts.Logger,
			onError:     opts.OnError,
			done:        make(chan struct{}),
		}, nil
	}

	return nil, fmt.Errorf("%w in %s:[%d, %d): %v", ErrNoAvailablePort, cfg.Host, cfg.PortStart, cfg.PortStart+cfg.PortRange, lastErr)
}

// Addr returns the host:port the mailbox listens on.
func (m *Mailbox) Addr() string {
	return m.listener.Addr().String()
}

// Port returns the bound port.
func (m *Mailbox) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

// Wait accepts exactly one connection and returns the message it carries.
// The sender is not checked.
func (m *Mailbox) Wait(ctx context.Context) (wire.Message, error) {
	if m.isClosed() {
		return wire.Message{}, ErrClosed
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = m.listener.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		if stop() {
			return
		}
		// The expired deadline must land before the reset.
		<-fired
		_ = m.listener.SetDeadline(time.Time{})
	}()

	conn, err := m.listener.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return wire.Message{}, ctxErr
		}
		if errors.Is(err, net.ErrClosed) {
			return wire.Message{}, ErrClosed
		}
		return wire.Message{}, err
	}
	defer conn.Close()

	return m.read(conn)
}

// Serve accepts connections until ctx is done or the mailbox is closed.
// Connections are processed one at a time on the accept goroutine. Frames that
// fail to decode or come from an unknown sender are dropped and reported to
// OnError; handler errors are reported the same way. Serve returns nil after
// Close.
func (m *Mailbox) Serve(ctx context.Context, h Handler) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("mailbox is already serving")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		_ = m.listener.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			conn, err := m.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || gctx.Err() != nil {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return fmt.Errorf("accept: %w", err)
			}
			if err := m.handle(gctx, conn, h); err != nil {
				m.report(err)
			}
		}
	})

	err := g.Wait()
	close(m.done)
	return err
}

func (m *Mailbox) handle(ctx context.Context, conn net.Conn, h Handler) error {
	msg, err := func() (wire.Message, error) {
		defer conn.Close()
		return m.read(conn)
	}()
	if err != nil {
		return err
	}
	if !h.Knows(msg.Sender) {
		return fmt.Errorf("%w: %q", ErrUnknownSender, msg.Sender)
	}
	m.logger.Debug("Message received", "addr", m.Addr(), "sender", msg.Sender, "type", msg.Type.String())
	return h.Receive(ctx, msg)
}

func (m *Mailbox) read(conn net.Conn) (wire.Message, error) {
	if m.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(m.readTimeout))
	}
	return m.codec.Decode(conn)
}

func (m *Mailbox) report(err error) {
	m.logger.Warn("Dropped inbound message", "addr", m.Addr(), "error", err)
	if m.onError != nil {
		m.onError(err)
	}
}

func (m *Mailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close releases the port. If Serve is running, Close waits for the message
// in flight to be processed and Serve to return.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel := m.cancel
	m.mu.Unlock()

	err := m.listener.Close()
	if cancel != nil {
		cancel()
		<-m.done
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
