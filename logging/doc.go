// Package logging provides a minimal logging interface and adapters for civmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, mailboxes and tracer sinks use. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging, with a runtime adjustable level
//   - ZapAdapter wrapping a sugared zap logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(logging.Config{Level: logging.LevelInfo, Format: "json"})
//	a, err := agent.New("Leader", "You lead.", func(o *agent.Options) { o.Logger = logger })
package logging
