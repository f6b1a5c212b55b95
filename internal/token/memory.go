package token

import (
	"context"
	"sync"
	"time"

	"opsgrid.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used by tests and single-binary demo
// setups. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]*Credential)}
}

func (s *MemoryStore) Create(ctx context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.NewPublic("T")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.creds[c.ID] = &cp
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.creds[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrInvalidToken
}

func (s *MemoryStore) ListByPrefix(ctx context.Context, scheme Scheme, keyPrefix string) ([]*Credential, error) {
	return s.list(func(c *Credential) bool {
		return c.Scheme == scheme && c.KeyPrefix == keyPrefix && !c.Revoked()
	}), nil
}

func (s *MemoryStore) ListByPrefixForOrg(ctx context.Context, scheme Scheme, orgID, keyPrefix string) ([]*Credential, error) {
	return s.list(func(c *Credential) bool {
		return c.Scheme == scheme && c.OrganizationID == orgID && c.KeyPrefix == keyPrefix && !c.Revoked()
	}), nil
}

func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creds[id]; ok && c.RevokedAt == nil {
		now := time.Now().UTC()
		c.RevokedAt = &now
	}
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creds[id]; ok {
		c.Active = active
	}
	return nil
}

func (s *MemoryStore) list(match func(*Credential) bool) []*Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Credential
	for _, c := range s.creds {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}
