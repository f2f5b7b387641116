package core

import "context"

// Origin says where a change to a report came from. It is copied onto the
// history entry of every ingest and edit.
type Origin struct {
	// IPAddress is the client address of an HTTP request. Empty for
	// directory ingests.
	IPAddress string
	// UserAgent is the client User-Agent, or WatcherAgent for files picked up
	// from the watch directory.
	UserAgent string
}

// WatcherAgent is the user agent recorded for reports ingested by a Watcher.
const WatcherAgent = "filterframes-watcher"

type originKey struct{}

// WithOrigin attaches o to ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin attached to ctx, or the zero Origin.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// logArgs returns slog attributes for the parts of o that are set.
func (o Origin) logArgs() []any {
	var args []any
	if o.IPAddress != "" {
		args = append(args, "client_ip", o.IPAddress)
	}
	if o.UserAgent != "" {
		args = append(args, "user_agent", o.UserAgent)
	}
	return args
}
