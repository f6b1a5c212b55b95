package authn

import (
	"net/http"
	"net/url"
	"strings"
)

// Headers consumed by the authentication layer.
const (
	HeaderAuthorization      = "Authorization"
	HeaderInstanceContext    = "X-Instance-Context"
	HeaderPlatformContext    = "X-Platform-Context"
	HeaderUserSyncContext    = "X-OpsGrid-User-Context"
	HeaderPlatformURL        = "X-Platform-URL"
	HeaderPlatformInstanceID = "X-Platform-Instance-ID"
)

// Query parameters carrying tokens for schemes that cannot use headers.
const (
	SlackTokenParam        = "slack_auth_token"
	MattermostTokenParam   = "mattermost_auth_token"
	GoogleOAuth2TokenParam = "google_oauth2_auth_token"
	ExportTokenParam       = "token"
)

// Request is the slice of an HTTP request the schemes need. Keeping it
// separate from http.Request makes schemes trivially testable and pins down
// exactly what authentication reads.
type Request struct {
	Header http.Header
	Query  url.Values

	// ResourceID is the public id from the request path for endpoints
	// whose tokens are bound to one resource (schedule export).
	ResourceID string
}

// NewRequest extracts the authentication-relevant parts of r.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Header: r.Header,
		Query:  r.URL.Query(),
	}
}

// WithResourceID returns a copy bound to the given path resource.
func (r *Request) WithResourceID(id string) *Request {
	cp := *r
	cp.ResourceID = id
	return &cp
}

// Authorization returns the trimmed Authorization header value.
func (r *Request) Authorization() string {
	return strings.TrimSpace(r.Header.Get(HeaderAuthorization))
}

// BearerToken returns the Authorization value with an optional Bearer
// prefix stripped. First-party clients send the bare token; the platform
// plugin sends Bearer tokens.
func (r *Request) BearerToken() string {
	auth := r.Authorization()
	if len(auth) >= 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return auth
}
