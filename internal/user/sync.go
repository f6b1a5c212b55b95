package user

import (
	"context"
	"errors"

	"opsgrid.org/internal/org"
)

// Syncer creates or updates users from platform sync payloads. This is the
// identity-sync collaborator the strict plugin authentication falls back to
// when a request carries a full user description for an unknown user.
type Syncer interface {
	GetOrCreateUser(ctx context.Context, o *org.Organization, p SyncPayload) (*User, error)
}

// StoreSyncer applies sync payloads directly against a Store.
type StoreSyncer struct {
	store Store
}

var _ Syncer = (*StoreSyncer)(nil)

func NewStoreSyncer(store Store) *StoreSyncer {
	return &StoreSyncer{store: store}
}

// GetOrCreateUser returns the existing user for the payload's platform id,
// updating mirrored fields, or creates the user when unknown.
func (s *StoreSyncer) GetOrCreateUser(ctx context.Context, o *org.Organization, p SyncPayload) (*User, error) {
	if o == nil {
		return nil, errors.New("user: sync requires an organization")
	}
	if p.Empty() {
		return nil, errors.New("user: sync payload carries no identity")
	}

	perms := make([]string, 0, len(p.Permissions))
	for _, perm := range p.Permissions {
		if perm.Action != "" {
			perms = append(perms, perm.Action)
		}
	}

	u := &User{
		OrganizationID: o.ID,
		PlatformUserID: p.ID,
		Username:       p.Login,
		Email:          p.Email,
		Name:           p.Name,
		Role:           p.Role,
		AvatarURL:      p.AvatarURL,
		IsActive:       true,
		Permissions:    perms,
		Teams:          p.Teams,
	}

	if existing, err := s.store.FindByPlatformID(ctx, o.ID, p.ID); err == nil {
		u.ID = existing.ID
		u.PublicID = existing.PublicID
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.store.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return s.store.FindByPlatformID(ctx, o.ID, p.ID)
}
