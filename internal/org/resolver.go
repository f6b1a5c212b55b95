package org

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"opsgrid.org/internal/obs"
	"opsgrid.org/internal/platform"
)

// SyncTrigger fires an asynchronous organization sync on the platform side.
// Implementations must be idempotent under concurrent duplicate triggers.
type SyncTrigger interface {
	SetupOrganization(ctx context.Context, url, token string) error
}

// ResolveInput carries the request identifiers an organization can be
// resolved from, in priority order: platform URL, then instance id, then
// the statically configured slugs.
type ResolveInput struct {
	PlatformURL string
	InstanceID  string
	AuthHeader  string
}

// Resolver maps request identifiers to an organization record.
type Resolver struct {
	store Store
	sync  SyncTrigger

	cloud     bool
	orgSlug   string
	stackSlug string
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithCloudLicense enables multi-tenant resolution by instance id.
func WithCloudLicense() ResolverOption {
	return func(r *Resolver) { r.cloud = true }
}

// WithSelfHostedSlugs sets the static organization and stack slugs used in
// single-tenant installs.
func WithSelfHostedSlugs(orgSlug, stackSlug string) ResolverOption {
	return func(r *Resolver) {
		r.orgSlug = orgSlug
		r.stackSlug = stackSlug
	}
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, sync SyncTrigger, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, sync: sync}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the organization a request belongs to.
//
// When a platform URL is present and unknown, Resolve triggers a sync and
// re-queries once; if the organization is still absent it returns
// ErrSyncInProgress, which is retryable. A malformed URL falls through to
// license-mode resolution.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Organization, error) {
	if in.PlatformURL != "" {
		if url, ok := platform.ValidateURL(in.PlatformURL); ok {
			return r.resolveByURL(ctx, url, in.AuthHeader)
		}
		obs.Logger().Warn("organization resolve: malformed platform url",
			zap.String("url", in.PlatformURL))
	}

	if r.cloud {
		if in.InstanceID == "" {
			return nil, ErrMissingInstanceID
		}
		return r.store.FindByStackID(ctx, in.InstanceID)
	}

	return r.store.FindBySlugs(ctx, r.orgSlug, r.stackSlug)
}

func (r *Resolver) resolveByURL(ctx context.Context, url, authHeader string) (*Organization, error) {
	o, err := r.store.FindByURL(ctx, url)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Trigger a sync and re-query once. A conflict means someone already
	// triggered it, which is just as good.
	if err := r.sync.SetupOrganization(ctx, url, authHeader); err != nil && !errors.Is(err, platform.ErrSyncConflict) {
		obs.Logger().Warn("organization sync trigger failed",
			zap.String("url", url), zap.Error(err))
	}

	o, err = r.store.FindByURL(ctx, url)
	if err == nil {
		return o, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSyncInProgress
	}
	return nil, err
}
