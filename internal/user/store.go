package user

import "context"

// Store describes persistence operations for organization members. All
// lookups are scoped to an organization: platform user ids and usernames
// only make sense per tenant.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByPublicID(ctx context.Context, orgID, publicID string) (*User, error)
	FindByPlatformID(ctx context.Context, orgID, platformUserID string) (*User, error)
	FindByUsername(ctx context.Context, orgID, username string) (*User, error)
	Upsert(ctx context.Context, u *User) error
}
