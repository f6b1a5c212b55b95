package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"opsgrid.org/internal/authn"
	"opsgrid.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and principal context.
func LogEvent(ctx context.Context, event string, fields ...zap.Field) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	entry := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = append(entry, zap.String("request_id", rid))
	}
	if p, ok := authn.PrincipalFromContext(ctx); ok {
		entry = append(entry, zap.String("principal", p.Kind.String()))
		if p.User != nil {
			entry = append(entry, zap.String("user_id", p.User.PublicID))
		}
		if p.Org != nil {
			entry = append(entry, zap.String("org_id", p.Org.ID))
		}
	}
	entry = append(entry, fields...)

	obs.Logger().Info("audit", entry...)
	return nil
}
