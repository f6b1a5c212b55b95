package org

import "context"

// Store describes persistence operations required for organization lookup.
// Lifecycle state is read on every authentication and never cached past
// request scope.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindByStackID(ctx context.Context, stackID string) (*Organization, error)
	FindByURL(ctx context.Context, url string) (*Organization, error)
	FindBySlugs(ctx context.Context, orgSlug, stackSlug string) (*Organization, error)
}
