package org

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("org: not found")

	// ErrSyncInProgress is retryable: a sync for the organization was
	// triggered and callers should back off and try again.
	ErrSyncInProgress = errors.New("org: sync in progress")

	ErrMissingInstanceID = errors.New("org: missing instance id")
)

// Organization is a tenant provisioned from the hosting platform.
type Organization struct {
	ID        string
	StackID   string
	URL       string
	OrgSlug   string
	StackSlug string
	IsMoved   bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted reports whether the organization was soft-deleted. A deleted
// organization blocks all authentication through it.
func (o *Organization) Deleted() bool {
	return o != nil && o.DeletedAt != nil
}

// Moved reports whether the organization migrated to another region or
// instance. A moved organization blocks all authentication through it.
func (o *Organization) Moved() bool {
	return o != nil && o.IsMoved
}
