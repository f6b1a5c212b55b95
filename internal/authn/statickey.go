package authn

import (
	"context"
	"crypto/subtle"
)

// StaticKeyScheme authenticates the incident ingestion webhook with a single
// pre-shared key from configuration. An unset key disables the scheme: every
// request is rejected rather than let an empty comparison succeed.
type StaticKeyScheme struct {
	key string
}

var _ Scheme = (*StaticKeyScheme)(nil)

func NewStaticKeyScheme(key string) *StaticKeyScheme {
	return &StaticKeyScheme{key: key}
}

func (s *StaticKeyScheme) Name() string { return "incident_static_key" }

func (s *StaticKeyScheme) Authenticate(ctx context.Context, req *Request) Result {
	presented := req.Authorization()
	if presented == "" {
		return Denied(KindMissingToken, "No token provided.")
	}
	if s.key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.key)) != 1 {
		return Denied(KindInvalidToken, "Wrong token")
	}
	return Granted(Principal{Kind: PrincipalServer}, nil)
}
