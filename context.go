package authcore

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "authcore_client_ip"
	ctxKeyUserAgent contextKey = "authcore_user_agent"
)

// WithClientIP returns a context carrying the caller's IP address for audit
// events emitted during the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// WithUserAgent returns a context carrying the caller's user agent string
// for audit events emitted during the request.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

func clientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

func userAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
