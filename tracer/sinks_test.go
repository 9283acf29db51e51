package tracer

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/civmesh/core"
)

type fakeRedis struct {
	ops   []string
	lists map[string][]string
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	f.ops = append(f.ops, "rpush "+key)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.lists, k)
		f.ops = append(f.ops, "del "+k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestRedisSink(t *testing.T) {
	fake := &fakeRedis{lists: map[string][]string{"person:Alice": {"stale"}}}
	sink := newRedisSink(fake, "")
	tr := New("Alice", []Sink{sink}, nil)
	ctx := context.Background()

	tr.OnRequest(ctx, "User", "hello")
	tr.OnThought(ctx, "chunk")
	tr.OnResponse(ctx, "User", "bye")

	assert.Equal(t, []string{"del person:Alice", "rpush person:Alice", "rpush person:Alice"}, fake.ops)
	require.Len(t, fake.lists["person:Alice"], 2)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(fake.lists["person:Alice"][0]), &ev))
	assert.Equal(t, KindRequest, ev.Kind)
	assert.Equal(t, "hello", ev.Payload)
}

type fakePublisher struct {
	keys []string
	msgs []amqp.Publishing
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, exchange+"/"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestAMQPSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := newAMQPSink(pub, "events", "")
	tr := New("Bob", []Sink{sink}, nil)

	tr.OnAct(context.Background(), core.NewAction(core.ActionTalk, "Carol", "hi", ""))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, []string{"events/civmesh.Bob.act"}, pub.keys)
	assert.Equal(t, "application/json", pub.msgs[0].ContentType)
	assert.Equal(t, "act", pub.msgs[0].Type)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].Body, &ev))
	require.NotNil(t, ev.Action)
	assert.Equal(t, "Carol", ev.Action.Target)
}

type fakeExecer struct {
	queries []string
	args    [][]any
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return nil, nil
}

func TestSQLSink(t *testing.T) {
	db := &fakeExecer{}
	sink := newSQLSink(db, "audit")
	tr := New("Dave", []Sink{sink}, nil)
	ctx := context.Background()

	tr.OnThought(ctx, "chunk")
	tr.OnOptimize(ctx, "good plan", true)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "INSERT INTO audit")
	args := db.args[0]
	require.Len(t, args, 8)
	assert.Equal(t, "Dave", args[1])
	assert.Equal(t, "optimize", args[2])
	assert.Equal(t, "good plan", args[4])
	assert.JSONEq(t, `{"accepted":true}`, args[5].(string))
}

func TestSQLSink_ClipsLongTargets(t *testing.T) {
	db := &fakeExecer{}
	tr := New("Dave", []Sink{newSQLSink(db, "audit")}, nil)

	name := strings.Repeat("ä", 300)
	tr.OnAct(context.Background(), core.NewAction(core.ActionBuild, name, "build it", ""))
	tr.OnResponse(context.Background(), "Alice", "done")

	require.Len(t, db.args, 2)
	target := db.args[0][3].(string)
	assert.Equal(t, maxTargetChars, utf8.RuneCountInString(target))
	assert.True(t, strings.HasPrefix(name, target))
	assert.Equal(t, "Alice", db.args[1][3])
}
