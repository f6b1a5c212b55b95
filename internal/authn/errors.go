package authn

import (
	"fmt"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind string

const (
	KindInvalidToken         Kind = "INVALID_TOKEN"
	KindMissingToken         Kind = "MISSING_TOKEN"
	KindMalformedContext     Kind = "MALFORMED_CONTEXT"
	KindOrganizationMoved    Kind = "ORGANIZATION_MOVED"
	KindOrganizationDeleted  Kind = "ORGANIZATION_DELETED"
	KindOrganizationNotFound Kind = "ORGANIZATION_NOT_FOUND"

	// KindOrganizationSyncInProgress is the only retryable failure: the
	// organization is being synced and the caller should back off.
	KindOrganizationSyncInProgress Kind = "ORGANIZATION_SYNC_IN_PROGRESS"

	KindResourceMismatch  Kind = "RESOURCE_MISMATCH"
	KindDeactivated       Kind = "DEACTIVATED"
	KindInactiveAccount   Kind = "INACTIVE_ACCOUNT"
	KindAmbiguousOrNoUser Kind = "AMBIGUOUS_OR_NO_USER"
	KindInternal          Kind = "INTERNAL"
)

// Error is a classified authentication failure surfaced to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authn: %s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match failures by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the caller may retry the same request later.
func (e *Error) Retryable() bool {
	return e.Kind == KindOrganizationSyncInProgress
}

// HTTPStatus maps the failure to a response status. Organization lifecycle
// problems are forbidden-style rather than unauthenticated; a sync in
// progress is throttled.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindOrganizationMoved, KindOrganizationDeleted, KindInactiveAccount:
		return http.StatusForbidden
	case KindOrganizationSyncInProgress:
		return http.StatusTooManyRequests
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
