package authn

import (
	"context"
	"errors"
	"strings"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// OrganizationResolver maps request identifiers to an organization,
// triggering an async sync for unknown platform URLs.
type OrganizationResolver interface {
	Resolve(ctx context.Context, in org.ResolveInput) (*org.Organization, error)
}

// ServiceAccountScheme authenticates platform service-account tokens. The
// fixed public prefix routes the request here; a header without the prefix
// means some other scheme owns it, so the scheme skips. The organization is
// resolved before the secret is checked, which scopes the credential scan
// to one tenant.
type ServiceAccountScheme struct {
	tokens   token.Store
	users    user.Store
	resolver OrganizationResolver
}

var _ Scheme = (*ServiceAccountScheme)(nil)

func NewServiceAccountScheme(tokens token.Store, users user.Store, resolver OrganizationResolver) *ServiceAccountScheme {
	return &ServiceAccountScheme{tokens: tokens, users: users, resolver: resolver}
}

func (s *ServiceAccountScheme) Name() string { return "service_account_token" }

func (s *ServiceAccountScheme) Authenticate(ctx context.Context, req *Request) Result {
	auth := req.Authorization()
	if auth == "" {
		return Denied(KindMissingToken, "No token provided.")
	}
	secret := req.BearerToken()
	if !strings.HasPrefix(secret, token.ServiceAccountPrefix) {
		return Skipped()
	}

	o, err := s.resolver.Resolve(ctx, org.ResolveInput{
		PlatformURL: req.Header.Get(HeaderPlatformURL),
		InstanceID:  req.Header.Get(HeaderPlatformInstanceID),
		AuthHeader:  auth,
	})
	switch {
	case err == nil:
	case errors.Is(err, org.ErrSyncInProgress):
		return Denied(KindOrganizationSyncInProgress, "Organization is being synced, please retry.")
	case errors.Is(err, org.ErrMissingInstanceID):
		return Denied(KindMalformedContext, "Missing %s header.", HeaderPlatformInstanceID)
	case errors.Is(err, org.ErrNotFound):
		return Denied(KindOrganizationNotFound, "Organization not found.")
	default:
		return Denied(KindInternal, "organization resolution failed")
	}

	if failure := checkOrganization(o); failure != nil {
		return DeniedErr(failure)
	}

	cred, err := token.FindBySecretForOrg(ctx, s.tokens, token.SchemeServiceAccount, o.ID, secret)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return Denied(KindInvalidToken, "Invalid token.")
		}
		return Denied(KindInternal, "credential lookup failed")
	}

	// Service accounts usually map to a mirrored pseudo-user; tokens
	// provisioned before the mirror exists act as the server principal.
	if cred.UserID == "" {
		return Granted(NewServerPrincipal(o), cred)
	}
	u, failure := loadCredentialUser(ctx, s.users, cred)
	if failure != nil {
		return DeniedErr(failure)
	}
	return Granted(NewUserPrincipal(u, o), cred)
}
