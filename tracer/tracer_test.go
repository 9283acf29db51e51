package tracer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
)

type captureLogger struct {
	logging.NoOpLogger
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) Warn(msg string, _ ...any)  { c.add(msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add(msg) }

func (c *captureLogger) add(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
}

func TestTracer_FanOutInOrderDespitePanic(t *testing.T) {
	var calls []string
	first := SinkFunc(func(_ context.Context, ev Event) error {
		calls = append(calls, "first:"+string(ev.Kind))
		panic("boom")
	})
	second := SinkFunc(func(_ context.Context, ev Event) error {
		calls = append(calls, "second:"+string(ev.Kind))
		return nil
	})
	logger := &captureLogger{}

	tr := New("Alice", []Sink{first, second}, logger)
	tr.OnAct(context.Background(), core.NewAction(core.ActionUse, "Terminal", "`ls`", ""))

	assert.Equal(t, []string{"first:act", "second:act"}, calls)
	assert.Equal(t, []string{"Trace sink panicked"}, logger.lines)
}

func TestTracer_FailingSinkDoesNotStopOthers(t *testing.T) {
	rec := NewRecorder()
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("offline") })
	logger := &captureLogger{}

	tr := New("Bob", []Sink{failing, rec}, logger)
	tr.OnResponse(context.Background(), "Alice", "pong")

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, KindResponse, evs[0].Kind)
	assert.Equal(t, []string{"Trace sink failed"}, logger.lines)
}

func TestTracer_DeliversAfterCancellation(t *testing.T) {
	var (
		seen     []error
		deadline []bool
	)
	sink := SinkFunc(func(ctx context.Context, ev Event) error {
		seen = append(seen, ctx.Err())
		_, ok := ctx.Deadline()
		deadline = append(deadline, ok)
		return nil
	})
	tr := New("Bob", []Sink{sink}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.OnResponseError(ctx, "Alice", context.Canceled)

	expired, stop := context.WithTimeout(context.Background(), time.Nanosecond)
	defer stop()
	<-expired.Done()
	tr.OnResponseError(expired, "Alice", context.DeadlineExceeded)

	assert.Equal(t, []error{nil, nil}, seen)
	assert.Equal(t, []bool{true, true}, deadline)
}

func TestTracer_StampsEvents(t *testing.T) {
	rec := NewRecorder()
	tr := New("Carol", []Sink{rec}, nil)
	ctx := context.Background()

	tr.OnRequest(ctx, "Alice", "do it")
	tr.OnPlans(ctx, []core.Plan{{Number: 1, ActionType: core.ActionAnswer, Objective: "reply"}})
	tr.OnOptimize(ctx, "fine", true)
	tr.OnReview(ctx, "not yet", false)
	tr.OnThoughtError(ctx, errors.New("quota"))

	evs := rec.Events()
	require.Len(t, evs, 5)
	ids := map[string]bool{}
	for _, ev := range evs {
		assert.Equal(t, "Carol", ev.Agent)
		assert.False(t, ev.Timestamp.IsZero())
		assert.NotEmpty(t, ev.ID)
		ids[ev.ID] = true
	}
	assert.Len(t, ids, 5)

	assert.Equal(t, "Alice", evs[0].Target)
	assert.Equal(t, "Alice asked: do it", evs[0].Summary())
	require.Len(t, evs[1].Plans, 1)
	assert.True(t, *evs[2].Accepted)
	assert.Equal(t, "review rejected: not yet", evs[3].Summary())
	assert.Equal(t, "quota", evs[4].Error)

	assert.Len(t, rec.Filter(KindOptimize, "Carol"), 1)
	assert.Empty(t, rec.Filter(KindOptimize, "Dave"))
	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: logging.LevelInfo, Format: "json", Output: &buf})
	tr := New("Dave", []Sink{NewLogSink(logger)}, nil)

	tr.OnThought(context.Background(), "hidden chunk")
	tr.OnActError(context.Background(), core.NewAction(core.ActionTalk, "Eve", "hi", ""), core.ErrUnknownTarget)

	out := buf.String()
	assert.NotContains(t, out, "hidden chunk")
	assert.Contains(t, out, `"kind":"act-error"`)
	assert.Contains(t, out, `"error":"unknown target"`)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	tr := New("Erin", []Sink{NewConsoleSink(&buf)}, nil)
	ctx := context.Background()

	tr.OnThoughtStart(ctx, "plan")
	tr.OnThought(ctx, "thinking")
	tr.OnThoughtEnd(ctx, "thinking")
	tr.OnResponse(ctx, "Alice", "done")

	out := buf.String()
	assert.Contains(t, out, "thinking")
	assert.Contains(t, out, "answered Alice: done")
	assert.Contains(t, out, "[Erin]")
}
