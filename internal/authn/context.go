package authn

import "context"

type grantContextKey struct{}

// ContextWithGrant attaches the authenticated grant to the context.
func ContextWithGrant(ctx context.Context, grant *Grant) context.Context {
	if grant == nil {
		return ctx
	}
	return context.WithValue(ctx, grantContextKey{}, grant)
}

// GrantFromContext extracts the grant placed by the auth middleware.
func GrantFromContext(ctx context.Context) (*Grant, bool) {
	if ctx == nil {
		return nil, false
	}
	g, ok := ctx.Value(grantContextKey{}).(*Grant)
	if !ok || g == nil {
		return nil, false
	}
	return g, true
}

// PrincipalFromContext is a convenience accessor for handlers that only
// need the identity.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	g, ok := GrantFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return g.Principal, true
}
