package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/filterframes/internal/core"
)

// withRequestMetadata adds the client address and User-Agent to ctx so
// ingests and edits can record who changed a report.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithOrigin(ctx, core.Origin{
		IPAddress: clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
}
