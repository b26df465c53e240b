package journal

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lanterne/dbopen"
	"github.com/hazyhaar/lanterne/kit"
)

func TestRecordAndRecent(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	j := New(db, nil)
	ctx := context.Background()

	j.Record(ctx, Event{Action: "ingest", Details: map[string]int{"added": 3}, Success: true})
	j.Record(ctx, Event{Action: "reset", Success: true})

	evs, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("len = %d, want 2", len(evs))
	}
	for _, ev := range evs {
		if ev.EventID == "" || ev.CreatedAt == 0 {
			t.Errorf("incomplete event: %+v", ev)
		}
	}
}

func TestRecordCapturesCallerIdentity(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	j := New(db, nil)

	ctx := kit.WithTransport(context.Background(), "mcp_quic")
	ctx = kit.WithSessionID(ctx, "quic_ab12cd34")
	ctx = kit.WithRemoteAddr(ctx, "198.51.100.7:4433")
	ctx = kit.WithTraceID(ctx, "trace-xyz")

	j.Record(ctx, Event{Action: "import", Success: true})
	// A bare context simply leaves the identity columns empty.
	j.Record(context.Background(), Event{Action: "reset", Success: true})

	evs, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("len = %d, want 2", len(evs))
	}
	var enriched, bare StoredEvent
	for _, ev := range evs {
		switch ev.Action {
		case "import":
			enriched = ev
		case "reset":
			bare = ev
		}
	}
	if enriched.Transport != "mcp_quic" || enriched.SessionID != "quic_ab12cd34" ||
		enriched.RemoteAddr != "198.51.100.7:4433" || enriched.TraceID != "trace-xyz" {
		t.Errorf("identity not persisted: %+v", enriched)
	}
	if bare.Transport != "" || bare.SessionID != "" || bare.RemoteAddr != "" || bare.TraceID != "" {
		t.Errorf("bare context leaked identity: %+v", bare)
	}
}

func TestRecordNilJournal(t *testing.T) {
	// A nil journal must be safe to call.
	var j *Journal
	j.Record(context.Background(), Event{Action: "ingest"})
}
