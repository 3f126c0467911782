package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/constructtrack/internal/companycontext"
)

type requestIDKey struct{}

// WithRequestID stores the inbound request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// CompanyIDFromContext renders the active company id for log fields.
func CompanyIDFromContext(ctx context.Context) string {
	id, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}

// ActorIDFromContext renders the acting user id for log fields.
func ActorIDFromContext(ctx context.Context) string {
	id, ok := companycontext.ActorIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}
