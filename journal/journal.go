// Package journal records gallery lifecycle events (ingests, imports,
// resets, restores) in SQLite for operator review. Recording is
// best-effort: a failing journal is logged via slog and never blocks or
// fails the operation it describes.
package journal

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/hazyhaar/lanterne/kit"
)

// Schema contains the DDL for the journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS gallery_events (
    event_id    TEXT PRIMARY KEY,
    action      TEXT NOT NULL,
    details     TEXT NOT NULL DEFAULT '{}',
    transport   TEXT NOT NULL DEFAULT '',
    session_id  TEXT NOT NULL DEFAULT '',
    remote_addr TEXT NOT NULL DEFAULT '',
    trace_id    TEXT NOT NULL DEFAULT '',
    success     INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gallery_events_time ON gallery_events(created_at DESC);
`

// Event is one recorded gallery action.
type Event struct {
	Action  string // "ingest", "import", "reset", "restore"
	Details any    // marshalled to JSON
	Success bool
}

// Journal writes events to its database.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Journal over an already-open database with Schema applied.
func New(db *sql.DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger}
}

// Record writes one event. The caller's identity (transport, session,
// remote address, trace) is read from ctx via the kit accessors and
// persisted alongside the event. Errors are logged, never returned.
func (j *Journal) Record(ctx context.Context, ev Event) {
	if j == nil || j.db == nil {
		return
	}
	details := "{}"
	if ev.Details != nil {
		if data, err := sonic.Marshal(ev.Details); err == nil {
			details = string(data)
		}
	}
	id := "evt_" + uuid.Must(uuid.NewV7()).String()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO gallery_events (event_id, action, details, transport, session_id, remote_addr, trace_id, success, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		id, ev.Action, details,
		kit.Transport(ctx), kit.SessionID(ctx), kit.RemoteAddr(ctx), kit.TraceID(ctx),
		ev.Success, time.Now().UnixMilli())
	if err != nil {
		j.logger.Warn("journal write failed", "action", ev.Action, "error", err)
	}
}

// Recent returns the latest n events, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]StoredEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT event_id, action, details, transport, session_id, remote_addr, trace_id, success, created_at
		FROM gallery_events ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.EventID, &ev.Action, &ev.Details, &ev.Transport, &ev.SessionID, &ev.RemoteAddr, &ev.TraceID, &ev.Success, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// StoredEvent is one journal row as persisted.
type StoredEvent struct {
	EventID    string `json:"event_id"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	Transport  string `json:"transport,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
	Success    bool   `json:"success"`
	CreatedAt  int64  `json:"created_at"`
}
