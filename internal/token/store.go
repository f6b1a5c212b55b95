package token

import "context"

// Store describes credential persistence. Scans are always scoped by scheme
// and key prefix; revoked credentials are excluded at the source.
type Store interface {
	Create(ctx context.Context, c *Credential) error
	Find(ctx context.Context, id string) (*Credential, error)
	ListByPrefix(ctx context.Context, scheme Scheme, keyPrefix string) ([]*Credential, error)
	ListByPrefixForOrg(ctx context.Context, scheme Scheme, orgID, keyPrefix string) ([]*Credential, error)
	Revoke(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}
