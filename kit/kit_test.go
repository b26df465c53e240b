package kit

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if Transport(ctx) != "" || SessionID(ctx) != "" || RemoteAddr(ctx) != "" || TraceID(ctx) != "" {
		t.Fatal("unset keys must read as empty")
	}

	ctx = WithTransport(ctx, "mcp_quic")
	ctx = WithSessionID(ctx, "quic_ab12cd34")
	ctx = WithRemoteAddr(ctx, "203.0.113.9:4433")
	ctx = WithTraceID(ctx, "deadbeef")

	if got := Transport(ctx); got != "mcp_quic" {
		t.Errorf("Transport = %q", got)
	}
	if got := SessionID(ctx); got != "quic_ab12cd34" {
		t.Errorf("SessionID = %q", got)
	}
	if got := RemoteAddr(ctx); got != "203.0.113.9:4433" {
		t.Errorf("RemoteAddr = %q", got)
	}
	if got := TraceID(ctx); got != "deadbeef" {
		t.Errorf("TraceID = %q", got)
	}
}

func TestContextKeysDoNotCollide(t *testing.T) {
	ctx := WithTransport(context.Background(), "http")
	if SessionID(ctx) != "" {
		t.Fatal("transport value leaked into session key")
	}
}
