package authn

import (
	"context"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// APITokenScheme authenticates first-party API clients by the opaque token
// in the Authorization header.
type APITokenScheme struct {
	tokens token.Store
	users  user.Store
	orgs   org.Store
}

var _ Scheme = (*APITokenScheme)(nil)

func NewAPITokenScheme(tokens token.Store, users user.Store, orgs org.Store) *APITokenScheme {
	return &APITokenScheme{tokens: tokens, users: users, orgs: orgs}
}

func (s *APITokenScheme) Name() string { return "api_token" }

func (s *APITokenScheme) Authenticate(ctx context.Context, req *Request) Result {
	secret := req.BearerToken()
	if secret == "" {
		return Denied(KindMissingToken, "No token provided.")
	}

	cred, failure := findCredential(ctx, s.tokens, token.SchemeAPI, secret)
	if failure != nil {
		return DeniedErr(failure)
	}

	o, failure := loadCredentialOrg(ctx, s.orgs, cred)
	if failure != nil {
		return DeniedErr(failure)
	}

	u, failure := loadCredentialUser(ctx, s.users, cred)
	if failure != nil {
		return DeniedErr(failure)
	}
	if !u.IsActive {
		return Denied(KindInactiveAccount, "Only active users are allowed to perform this action.")
	}

	return Granted(NewUserPrincipal(u, o), cred)
}
