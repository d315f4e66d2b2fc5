// Package auditcontext carries request metadata that audit records capture.
package auditcontext

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	ipAddressKey ctxKey = "audit_ip_address"
	userAgentKey ctxKey = "audit_user_agent"
)

func WithRequestID(ctx context.Context, value string) context.Context {
	return with(ctx, requestIDKey, value)
}

func WithIPAddress(ctx context.Context, value string) context.Context {
	return with(ctx, ipAddressKey, value)
}

func WithUserAgent(ctx context.Context, value string) context.Context {
	return with(ctx, userAgentKey, value)
}

func RequestIDFromContext(ctx context.Context) string { return get(ctx, requestIDKey) }

func IPAddressFromContext(ctx context.Context) string { return get(ctx, ipAddressKey) }

func UserAgentFromContext(ctx context.Context) string { return get(ctx, userAgentKey) }

func with(ctx context.Context, key ctxKey, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
