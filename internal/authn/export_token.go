package authn

import (
	"context"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// ExportTokenScheme authenticates calendar-export requests. The token
// travels in a query parameter because export URLs are pasted into calendar
// clients that cannot set headers. Each token is bound to exactly one
// resource (a schedule, or a user's personal schedule) and can be
// deactivated without being revoked.
type ExportTokenScheme struct {
	name     string
	scheme   token.Scheme
	resource string

	tokens token.Store
	users  user.Store
	orgs   org.Store
}

var _ Scheme = (*ExportTokenScheme)(nil)

// NewScheduleExportScheme validates tokens bound to a schedule.
func NewScheduleExportScheme(tokens token.Store, users user.Store, orgs org.Store) *ExportTokenScheme {
	return &ExportTokenScheme{
		name:     "schedule_export_token",
		scheme:   token.SchemeScheduleExport,
		resource: "schedule",
		tokens:   tokens,
		users:    users,
		orgs:     orgs,
	}
}

// NewUserScheduleExportScheme validates tokens bound to a user's personal
// schedule.
func NewUserScheduleExportScheme(tokens token.Store, users user.Store, orgs org.Store) *ExportTokenScheme {
	return &ExportTokenScheme{
		name:     "user_schedule_export_token",
		scheme:   token.SchemeUserScheduleExport,
		resource: "user",
		tokens:   tokens,
		users:    users,
		orgs:     orgs,
	}
}

func (s *ExportTokenScheme) Name() string { return s.name }

func (s *ExportTokenScheme) Authenticate(ctx context.Context, req *Request) Result {
	secret := req.Query.Get(ExportTokenParam)
	if secret == "" {
		return Denied(KindMissingToken, "No export token provided.")
	}

	cred, failure := findCredential(ctx, s.tokens, s.scheme, secret)
	if failure != nil {
		return DeniedErr(failure)
	}

	o, failure := loadCredentialOrg(ctx, s.orgs, cred)
	if failure != nil {
		return DeniedErr(failure)
	}

	// Resource binding and deactivation are distinct failures: a token
	// presented against the wrong resource is not the same operational
	// problem as a token someone turned off.
	if cred.ResourceID != req.ResourceID {
		return Denied(KindResourceMismatch, "Invalid export token for %s.", s.resource)
	}
	if !cred.Active {
		return Denied(KindDeactivated, "Export token is deactivated.")
	}

	u, failure := loadCredentialUser(ctx, s.users, cred)
	if failure != nil {
		return DeniedErr(failure)
	}
	return Granted(NewUserPrincipal(u, o), cred)
}
