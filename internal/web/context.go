package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/countsheet/internal/core"
	mw "github.com/JonMunkholm/countsheet/internal/web/middleware"
)

// WithRequestMetadata copies the client IP and User-Agent into ctx for the
// run log.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
