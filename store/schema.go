package store

// Schema contains the complete DDL for the slide store.
const Schema = `
-- Persisted slides: one row per accepted unit of content, keyed by the
-- dedup signature. added_at carries the display/persistence order.
CREATE TABLE IF NOT EXISTS slides (
    signature   TEXT PRIMARY KEY,
    label       TEXT NOT NULL DEFAULT '',
    mime        TEXT NOT NULL DEFAULT 'application/octet-stream',
    added_at    INTEGER NOT NULL,
    payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_slides_added ON slides(added_at);
`
