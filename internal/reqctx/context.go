package reqctx

import "context"

type ctxKey string

const (
	keyRID ctxKey = "rid"
	keyUID ctxKey = "uid"
)

// WithRID stores the request correlation id used in ledger logs.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUID stores the authenticated user id.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUID, uid)
}

// UID returns the authenticated user id if present.
func UID(ctx context.Context) string {
	v, _ := ctx.Value(keyUID).(string)
	return v
}

// LogPrefix renders "[rid=... uid=...] " for log lines, empty when neither is set.
func LogPrefix(ctx context.Context) string {
	rid, uid := RID(ctx), UID(ctx)
	switch {
	case rid != "" && uid != "":
		return "[rid=" + rid + " uid=" + uid + "] "
	case rid != "":
		return "[rid=" + rid + "] "
	case uid != "":
		return "[uid=" + uid + "] "
	}
	return ""
}
