package tracer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/civmesh/core"

	// registers the mysql driver
	_ "github.com/go-sql-driver/mysql"
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS %s (
	id CHAR(36) NOT NULL PRIMARY KEY,
	agent VARCHAR(12) NOT NULL,
	kind VARCHAR(32) NOT NULL,
	target VARCHAR(255) NOT NULL DEFAULT '',
	payload MEDIUMTEXT,
	detail JSON,
	error TEXT,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_agent_created (agent, created_at)
)`

// maxTargetChars is the width of the target column. Agent names are short
// but Build and Use targets are tool names chosen by the model.
const maxTargetChars = 255

// SQLConfig describes the audit table.
type SQLConfig struct {
	DSN   string
	Table string
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLSink inserts one audit row per event. Thought chunks are skipped; the
// complete reply is recorded by the thought-end event.
type SQLSink struct {
	db     execer
	insert string
	close  func() error
}

// NewSQLSink opens the mysql database and creates the table if needed.
func NewSQLSink(ctx context.Context, cfg SQLConfig) (*SQLSink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mysql dsn must not be empty")
	}
	table := cfg.Table
	if table == "" {
		table = "civmesh_events"
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(createEventsTable, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	s := newSQLSink(db, table)
	s.close = db.Close
	return s, nil
}

func newSQLSink(db execer, table string) *SQLSink {
	return &SQLSink{
		db:     db,
		insert: fmt.Sprintf("INSERT INTO %s (id, agent, kind, target, payload, detail, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", table),
	}
}

// Handle implements Sink.
func (s *SQLSink) Handle(ctx context.Context, ev Event) error {
	if ev.Kind == KindThought {
		return nil
	}

	var detail any
	if len(ev.Plans) > 0 || ev.Action != nil || ev.Accepted != nil {
		data, err := json.Marshal(struct {
			Plans    []core.Plan  `json:"plans,omitempty"`
			Action   *core.Action `json:"action,omitempty"`
			Accepted *bool        `json:"accepted,omitempty"`
		}{ev.Plans, ev.Action, ev.Accepted})
		if err != nil {
			return err
		}
		detail = string(data)
	}

	_, err := s.db.ExecContext(ctx, s.insert,
		ev.ID, ev.Agent, string(ev.Kind), clip(ev.Target, maxTargetChars), ev.Payload, detail, ev.Error, ev.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

// clip cuts s to at most n characters.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Close closes the database.
func (s *SQLSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
