package authn

import (
	"context"
	"errors"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// checkOrganization enforces the lifecycle invariant shared by every
// scheme: a moved or deleted organization blocks all authentication
// through it, before any user or credential-shape check.
func checkOrganization(o *org.Organization) *Error {
	switch {
	case o == nil:
		return newError(KindOrganizationNotFound, "Organization not found.")
	case o.Moved():
		return newError(KindOrganizationMoved, "Organization was moved to another instance.")
	case o.Deleted():
		return newError(KindOrganizationDeleted, "Organization was deleted.")
	default:
		return nil
	}
}

// loadCredentialOrg finds the credential's organization and applies the
// lifecycle checks.
func loadCredentialOrg(ctx context.Context, orgs org.Store, cred *token.Credential) (*org.Organization, *Error) {
	o, err := orgs.Find(ctx, cred.OrganizationID)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			return nil, newError(KindOrganizationNotFound, "Organization not found.")
		}
		return nil, newError(KindInternal, "organization lookup failed")
	}
	if failure := checkOrganization(o); failure != nil {
		return nil, failure
	}
	return o, nil
}

// loadCredentialUser finds the user a credential belongs to. A dangling
// user reference counts as an invalid token, not an internal error.
func loadCredentialUser(ctx context.Context, users user.Store, cred *token.Credential) (*user.User, *Error) {
	if cred.UserID == "" {
		return nil, newError(KindInvalidToken, "Invalid token.")
	}
	u, err := users.Find(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, newError(KindInvalidToken, "Invalid token.")
		}
		return nil, newError(KindInternal, "user lookup failed")
	}
	return u, nil
}

// findCredential runs the canonical secret lookup and classifies the miss.
func findCredential(ctx context.Context, tokens token.Store, scheme token.Scheme, secret string) (*token.Credential, *Error) {
	cred, err := token.FindBySecret(ctx, tokens, scheme, secret)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return nil, newError(KindInvalidToken, "Invalid token.")
		}
		return nil, newError(KindInternal, "credential lookup failed")
	}
	return cred, nil
}
