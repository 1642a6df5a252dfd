package requestcontext

import "context"

type clientIPKey struct{}

// WithClientIP stores the originating network address of the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the originating network address, or "" when unknown.
func ClientIP(ctx context.Context) string {
	ip, ok := ctx.Value(clientIPKey{}).(string)
	if !ok {
		return ""
	}
	return ip
}
