package kit

import "context"

type ctxKey int

const (
	ctxKeyTransport ctxKey = iota
	ctxKeySessionID
	ctxKeyRemoteAddr
	ctxKeyTraceID
)

// WithTransport tags the context with the transport that carried the
// request ("http", "mcp_quic").
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, ctxKeyTransport, transport)
}

// Transport returns the transport tag, or "" when unset.
func Transport(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTransport).(string)
	return v
}

// WithSessionID tags the context with the transport session identity.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// SessionID returns the session identity, or "" when unset.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionID).(string)
	return v
}

// WithRemoteAddr tags the context with the peer address.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxKeyRemoteAddr, addr)
}

// RemoteAddr returns the peer address, or "" when unset.
func RemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRemoteAddr).(string)
	return v
}

// WithTraceID tags the context with a per-request trace identity.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyTraceID, id)
}

// TraceID returns the trace identity, or "" when unset.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTraceID).(string)
	return v
}
