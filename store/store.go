// Package store provides the durable SQLite persistence layer for slides.
//
// The database handle is opened lazily, at most once per Store; concurrent
// first callers share the single open attempt. When the database cannot be
// opened every operation degrades to a safe no-op (Put, Clear) or an empty
// result (GetAll, Count): persistence failure must never abort ingestion.
// Unavailability is logged once per Store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/lanterne/dbopen"
)

// Slide is one persisted record, keyed by Signature.
type Slide struct {
	Signature string `json:"signature"`
	Label     string `json:"label"`
	MIME      string `json:"type"`
	AddedAt   int64  `json:"addedAt"` // ms since epoch; retrieval order
	Payload   []byte `json:"-"`
}

// Config configures a Store.
type Config struct {
	// Path is the SQLite database file (default: "db/slides.db").
	Path string `yaml:"path"`

	// Logger for warnings. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Path == "" {
		c.Path = "db/slides.db"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store persists slides in SQLite.
type Store struct {
	cfg Config

	mu      sync.Mutex
	opened  bool
	db      *sql.DB
	openErr error
	warned  bool
}

// New creates a Store. The database is not opened until first use.
func New(cfg Config) *Store {
	cfg.defaults()
	return &Store{cfg: cfg}
}

// NewWithDB creates a Store over an already-open database that has the
// slide Schema applied. Used by tests and by callers sharing one handle.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	cfg := Config{Path: ":memory:", Logger: logger}
	cfg.defaults()
	return &Store{cfg: cfg, opened: true, db: db}
}

// handle returns the shared database handle, opening it on first call.
// Returns nil when the store is unavailable.
func (s *Store) handle() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		s.opened = true
		s.db, s.openErr = dbopen.Open(s.cfg.Path,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(Schema),
		)
	}
	if s.openErr != nil {
		if !s.warned {
			s.warned = true
			s.cfg.Logger.Warn("slide store unavailable, persistence disabled", "path", s.cfg.Path, "error", s.openErr)
		}
		return nil
	}
	return s.db
}

// Unavailable reports whether the store failed to open. It triggers the
// lazy open if that has not happened yet.
func (s *Store) Unavailable() bool {
	return s.handle() == nil
}

// Put upserts a slide by signature in its own transaction. Idempotent.
// A no-op when the store is unavailable; only genuine SQL failures return
// an error.
func (s *Store) Put(ctx context.Context, sl *Slide) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	mime := sl.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slides (signature, label, mime, added_at, payload)
			VALUES (?,?,?,?,?)
			ON CONFLICT(signature) DO UPDATE SET
				label = excluded.label,
				mime = excluded.mime,
				added_at = excluded.added_at,
				payload = excluded.payload`,
			sl.Signature, sl.Label, mime, sl.AddedAt, sl.Payload,
		)
		if err != nil {
			return fmt.Errorf("put slide %s: %w", sl.Signature, err)
		}
		return nil
	})
}

// GetAll returns every persisted slide ordered by ascending added_at.
// Returns an empty slice when the store is unavailable.
func (s *Store) GetAll(ctx context.Context) ([]*Slide, error) {
	db := s.handle()
	if db == nil {
		return nil, nil
	}
	rows, err := db.QueryContext(ctx, `
		SELECT signature, label, mime, added_at, payload
		FROM slides ORDER BY added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all slides: %w", err)
	}
	defer rows.Close()

	var out []*Slide
	for rows.Next() {
		sl := &Slide{}
		if err := rows.Scan(&sl.Signature, &sl.Label, &sl.MIME, &sl.AddedAt, &sl.Payload); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// Count returns the number of persisted slides, 0 when unavailable.
func (s *Store) Count(ctx context.Context) (int, error) {
	db := s.handle()
	if db == nil {
		return 0, nil
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slides`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count slides: %w", err)
	}
	return n, nil
}

// Clear removes all persisted slides. A no-op when unavailable.
func (s *Store) Clear(ctx context.Context) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slides`); err != nil {
			return fmt.Errorf("clear slides: %w", err)
		}
		return nil
	})
}

// Close closes the database if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
