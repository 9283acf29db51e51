package testutil

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/hupe1980/civmesh/mailbox"
)

// FreePortRange returns a mailbox config whose port range holds n ports that
// were all free when probed. Another process may still take one of them.
func FreePortRange(t testing.TB, n int) mailbox.Config {
	t.Helper()

	for attempt := 0; attempt < 50; attempt++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("probe port: %v", err)
		}
		start := l.Addr().(*net.TCPAddr).Port
		_ = l.Close()

		if start+n-1 > 65535 {
			continue
		}
		if rangeFree(start, n) {
			cfg := mailbox.DefaultConfig()
			cfg.PortStart = start
			cfg.PortRange = n
			cfg.ReadTimeout = 5 * time.Second
			cfg.DialTimeout = 2 * time.Second
			return cfg
		}
	}

	t.Fatalf("no contiguous range of %d free ports found", n)
	return mailbox.Config{}
}

// Occupy binds every port of cfg's range and returns a function releasing them.
func Occupy(t testing.TB, cfg mailbox.Config) func() {
	t.Helper()

	listeners := make([]net.Listener, 0, cfg.PortRange)
	release := func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}
	for p := cfg.PortStart; p < cfg.PortStart+cfg.PortRange; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(p)))
		if err != nil {
			release()
			t.Fatalf("occupy port %d: %v", p, err)
		}
		listeners = append(listeners, l)
	}
	return release
}

func rangeFree(start, n int) bool {
	held := make([]net.Listener, 0, n)
	defer func() {
		for _, l := range held {
			_ = l.Close()
		}
	}()
	for p := start; p < start+n; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p)))
		if err != nil {
			return false
		}
		held = append(held, l)
	}
	return true
}
