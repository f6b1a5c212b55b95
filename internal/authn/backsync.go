package authn

import (
	"context"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
)

// BacksyncScheme authenticates trusted server-to-server callbacks from
// integrations. It always resolves to the synthetic server principal; no
// user is ever involved.
type BacksyncScheme struct {
	tokens token.Store
	orgs   org.Store
}

var _ Scheme = (*BacksyncScheme)(nil)

func NewBacksyncScheme(tokens token.Store, orgs org.Store) *BacksyncScheme {
	return &BacksyncScheme{tokens: tokens, orgs: orgs}
}

func (s *BacksyncScheme) Name() string { return "backsync_token" }

func (s *BacksyncScheme) Authenticate(ctx context.Context, req *Request) Result {
	secret := req.BearerToken()
	if secret == "" {
		return Denied(KindMissingToken, "No token provided.")
	}

	cred, failure := findCredential(ctx, s.tokens, token.SchemeBacksync, secret)
	if failure != nil {
		return DeniedErr(failure)
	}

	o, failure := loadCredentialOrg(ctx, s.orgs, cred)
	if failure != nil {
		return DeniedErr(failure)
	}
	return Granted(NewServerPrincipal(o), cred)
}
