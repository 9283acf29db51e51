package tracer

import (
	"context"

	"github.com/hupe1980/civmesh/logging"
)

// LogSink writes every event to a logger. Streamed thought chunks are logged
// at debug level, failures at warn level and everything else at info level.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Handle implements Sink.
func (s *LogSink) Handle(_ context.Context, ev Event) error {
	args := []any{"agent", ev.Agent, "kind", string(ev.Kind)}
	if ev.Target != "" {
		args = append(args, "target", ev.Target)
	}
	if ev.Accepted != nil {
		args = append(args, "accepted", *ev.Accepted)
	}

	switch ev.Kind {
	case KindThought, KindThoughtStart:
		s.logger.Debug(ev.Summary(), args...)
	case KindThoughtError, KindActError, KindResponseError, KindReceiveError:
		s.logger.Warn(ev.Summary(), append(args, "error", ev.Error)...)
	default:
		s.logger.Info(ev.Summary(), args...)
	}
	return nil
}
