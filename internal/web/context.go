package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/metasync/internal/core"
)

// WithRequestMetadata copies the client address and user agent into ctx so
// the run history can attribute a pass.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by TrustedRealIP
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
