package store

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lanterne/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewWithDB(db, nil)
}

func TestPutGetAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	slides := []*Slide{
		{Signature: "b", Label: "second", MIME: "image/png", AddedAt: 200, Payload: []byte{2}},
		{Signature: "a", Label: "first", MIME: "image/jpeg", AddedAt: 100, Payload: []byte{1}},
		{Signature: "c", Label: "third", MIME: "image/png", AddedAt: 300, Payload: []byte{3}},
	}
	for _, sl := range slides {
		if err := s.Put(ctx, sl); err != nil {
			t.Fatalf("put %s: %v", sl.Signature, err)
		}
	}

	got, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Ordered by added_at, not insertion order.
	for i, want := range []string{"a", "b", "c"} {
		if got[i].Signature != want {
			t.Errorf("got[%d].Signature = %q, want %q", i, got[i].Signature, want)
		}
	}
	if got[0].Label != "first" || string(got[0].Payload) != "\x01" {
		t.Errorf("record round-trip mismatch: %+v", got[0])
	}
}

func TestPutIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sl := &Slide{Signature: "x", Label: "one", MIME: "image/png", AddedAt: 1, Payload: []byte("p")}
	if err := s.Put(ctx, sl); err != nil {
		t.Fatal(err)
	}
	sl.Label = "renamed"
	if err := s.Put(ctx, sl); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d after double put, want 1", n)
	}

	got, _ := s.GetAll(ctx)
	if got[0].Label != "renamed" {
		t.Errorf("upsert did not update label: %q", got[0].Label)
	}
}

func TestPutDefaultsMIME(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Slide{Signature: "m", AddedAt: 1, Payload: []byte("p")}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetAll(ctx)
	if got[0].MIME != "application/octet-stream" {
		t.Errorf("MIME = %q, want application/octet-stream", got[0].MIME)
	}
}

func TestClear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, &Slide{Signature: "a", AddedAt: 1, Payload: []byte("p")})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, _ := s.Count(ctx)
	if n != 0 {
		t.Fatalf("count = %d after clear, want 0", n)
	}
}

func TestUnavailableDegradesToNoop(t *testing.T) {
	// A directory path that cannot be created as a file makes open fail.
	dir := t.TempDir()
	s := New(Config{Path: dir}) // path is an existing directory
	ctx := context.Background()

	if !s.Unavailable() {
		t.Fatal("store over a directory path should be unavailable")
	}
	if err := s.Put(ctx, &Slide{Signature: "a", AddedAt: 1, Payload: []byte("p")}); err != nil {
		t.Fatalf("put on unavailable store must be a no-op, got %v", err)
	}
	got, err := s.GetAll(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("get all on unavailable store = (%v, %v), want empty", got, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear on unavailable store must be a no-op, got %v", err)
	}
}

func TestReopenSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.db")
	ctx := context.Background()

	s1 := New(Config{Path: path})
	if err := s1.Put(ctx, &Slide{Signature: "keep", Label: "l", AddedAt: 7, Payload: []byte("p")}); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := New(Config{Path: path})
	defer s2.Close()
	got, err := s2.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Signature != "keep" || got[0].AddedAt != 7 {
		t.Fatalf("reopened store lost data: %+v", got)
	}
}
