package authn

import (
	"context"
	"errors"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/platform"
	"opsgrid.org/internal/user"
)

// TokenChecker validates a plugin-issued token against the instance it
// claims to come from.
type TokenChecker interface {
	CheckToken(ctx context.Context, token string, ic platform.InstanceContext) (*platform.CheckedToken, error)
}

// PluginScheme authenticates requests proxied through the platform plugin.
// The plugin signs each request with an instance-scoped token and forwards
// the calling user in the X-Platform-Context header.
//
// The tolerant variant resolves the user on a best-effort basis: a missing
// or unusable user context still yields a plugin principal, so endpoints
// that only need instance identity keep working during install and sync.
// The strict variant demands a resolvable user and will create one from the
// X-OpsGrid-User-Context payload when it is present.
type PluginScheme struct {
	checker TokenChecker
	orgs    org.Store
	users   user.Store
	syncer  user.Syncer
	strict  bool
}

var _ Scheme = (*PluginScheme)(nil)

func NewPluginScheme(checker TokenChecker, orgs org.Store, users user.Store, syncer user.Syncer) *PluginScheme {
	return &PluginScheme{checker: checker, orgs: orgs, users: users, syncer: syncer}
}

func NewStrictPluginScheme(checker TokenChecker, orgs org.Store, users user.Store, syncer user.Syncer) *PluginScheme {
	return &PluginScheme{checker: checker, orgs: orgs, users: users, syncer: syncer, strict: true}
}

func (s *PluginScheme) Name() string {
	if s.strict {
		return "plugin_token_strict"
	}
	return "plugin_token"
}

func (s *PluginScheme) Authenticate(ctx context.Context, req *Request) Result {
	auth := req.Authorization()
	if auth == "" {
		return Denied(KindMissingToken, "No token provided.")
	}

	ic, failure := ParseInstanceContext(req.Header)
	if failure != nil {
		return DeniedErr(failure)
	}

	if _, err := s.checker.CheckToken(ctx, auth, ic); err != nil {
		return Denied(KindInvalidToken, "Invalid token.")
	}

	o, err := s.orgs.FindByStackID(ctx, ic.StackID)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			return Denied(KindOrganizationNotFound, "No organization associated with token.")
		}
		return Denied(KindInternal, "organization lookup failed")
	}
	if failure := checkOrganization(o); failure != nil {
		return DeniedErr(failure)
	}

	if s.strict {
		return s.resolveStrict(ctx, req, o)
	}
	return s.resolveTolerant(ctx, req, o)
}

// resolveTolerant never fails past this point: any problem locating the
// user degrades to a plugin principal without one.
func (s *PluginScheme) resolveTolerant(ctx context.Context, req *Request, o *org.Organization) Result {
	uc, failure := ParsePlatformUserContext(req.Header)
	if failure != nil || uc == nil || uc.IsServiceAccount {
		return Granted(NewPluginPrincipal(o, nil), nil)
	}

	var u *user.User
	var err error
	switch {
	case uc.UserID != "":
		u, err = s.users.FindByPlatformID(ctx, o.ID, uc.UserID)
	case uc.Login != "":
		u, err = s.users.FindByUsername(ctx, o.ID, uc.Login)
	}
	if err != nil || u == nil {
		return Granted(NewPluginPrincipal(o, nil), nil)
	}
	return Granted(NewPluginPrincipal(o, u), nil)
}

func (s *PluginScheme) resolveStrict(ctx context.Context, req *Request, o *org.Organization) Result {
	uc, failure := ParsePlatformUserContext(req.Header)
	if failure != nil {
		return DeniedErr(failure)
	}
	if uc == nil {
		return Denied(KindMalformedContext, "No platform context provided.")
	}
	if uc.IsServiceAccount {
		return Denied(KindAmbiguousOrNoUser, "Service accounts are not allowed here.")
	}

	var u *user.User
	var err error
	switch {
	case uc.UserID != "":
		u, err = s.users.FindByPlatformID(ctx, o.ID, uc.UserID)
	case uc.Login != "":
		u, err = s.users.FindByUsername(ctx, o.ID, uc.Login)
	default:
		return Denied(KindMalformedContext, "Platform context must specify a User or UserID.")
	}
	switch {
	case err == nil:
		return Granted(NewUserPrincipal(u, o), nil)
	case errors.Is(err, user.ErrNotFound):
		return s.syncUser(ctx, req, o)
	default:
		return Denied(KindInternal, "user lookup failed")
	}
}

// syncUser creates the user from the sync payload forwarded alongside the
// request, when there is one.
func (s *PluginScheme) syncUser(ctx context.Context, req *Request, o *org.Organization) Result {
	payload, present, failure := ParseSyncPayload(req.Header)
	if failure != nil {
		return DeniedErr(failure)
	}
	if !present || payload.Empty() {
		return Denied(KindAmbiguousOrNoUser, "Non-existent or anonymous user.")
	}
	u, err := s.syncer.GetOrCreateUser(ctx, o, payload)
	if err != nil {
		return Denied(KindInternal, "user sync failed")
	}
	return Granted(NewUserPrincipal(u, o), nil)
}
