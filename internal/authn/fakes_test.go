package authn

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/platform"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

type fakeOrgStore struct {
	byID    map[string]*org.Organization
	byStack map[string]*org.Organization
	err     error
}

func newFakeOrgStore(orgs ...*org.Organization) *fakeOrgStore {
	s := &fakeOrgStore{
		byID:    make(map[string]*org.Organization),
		byStack: make(map[string]*org.Organization),
	}
	for _, o := range orgs {
		s.byID[o.ID] = o
		if o.StackID != "" {
			s.byStack[o.StackID] = o
		}
	}
	return s
}

func (s *fakeOrgStore) Create(ctx context.Context, o *org.Organization) error { return nil }

func (s *fakeOrgStore) Find(ctx context.Context, id string) (*org.Organization, error) {
	if s.err != nil {
		return nil, s.err
	}
	if o, ok := s.byID[id]; ok {
		return o, nil
	}
	return nil, org.ErrNotFound
}

func (s *fakeOrgStore) FindByStackID(ctx context.Context, stackID string) (*org.Organization, error) {
	if s.err != nil {
		return nil, s.err
	}
	if o, ok := s.byStack[stackID]; ok {
		return o, nil
	}
	return nil, org.ErrNotFound
}

func (s *fakeOrgStore) FindByURL(ctx context.Context, u string) (*org.Organization, error) {
	return nil, org.ErrNotFound
}

func (s *fakeOrgStore) FindBySlugs(ctx context.Context, orgSlug, stackSlug string) (*org.Organization, error) {
	return nil, org.ErrNotFound
}

type fakeUserStore struct {
	byID       map[string]*user.User
	byPlatform map[string]*user.User
	byUsername map[string]*user.User
	err        error
}

func newFakeUserStore(users ...*user.User) *fakeUserStore {
	s := &fakeUserStore{
		byID:       make(map[string]*user.User),
		byPlatform: make(map[string]*user.User),
		byUsername: make(map[string]*user.User),
	}
	for _, u := range users {
		s.add(u)
	}
	return s
}

func (s *fakeUserStore) add(u *user.User) {
	s.byID[u.ID] = u
	if u.PlatformUserID != "" {
		s.byPlatform[u.OrganizationID+"/"+u.PlatformUserID] = u
	}
	if u.Username != "" {
		s.byUsername[u.OrganizationID+"/"+u.Username] = u
	}
}

func (s *fakeUserStore) Create(ctx context.Context, u *user.User) error {
	s.add(u)
	return nil
}

func (s *fakeUserStore) Find(ctx context.Context, id string) (*user.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) FindByPublicID(ctx context.Context, orgID, publicID string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) FindByPlatformID(ctx context.Context, orgID, platformUserID string) (*user.User, error) {
	if u, ok := s.byPlatform[orgID+"/"+platformUserID]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) FindByUsername(ctx context.Context, orgID, username string) (*user.User, error) {
	if u, ok := s.byUsername[orgID+"/"+username]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) Upsert(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = "u-synced"
	}
	s.add(u)
	return nil
}

type fakeResolver struct {
	org *org.Organization
	err error
}

func (r *fakeResolver) Resolve(ctx context.Context, in org.ResolveInput) (*org.Organization, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.org, nil
}

type fakeChecker struct {
	err error
}

func (c *fakeChecker) CheckToken(ctx context.Context, tok string, ic platform.InstanceContext) (*platform.CheckedToken, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &platform.CheckedToken{StackID: ic.StackID, OrgID: ic.OrgID}, nil
}

func testOrg() *org.Organization {
	return &org.Organization{ID: "o-1", StackID: "42", URL: "https://example.opsgrid.net"}
}

func deletedOrg() *org.Organization {
	now := time.Now().UTC()
	o := testOrg()
	o.DeletedAt = &now
	return o
}

func movedOrg() *org.Organization {
	o := testOrg()
	o.IsMoved = true
	return o
}

func testUser(orgID string) *user.User {
	return &user.User{
		ID:             "u-1",
		PublicID:       "U1",
		OrganizationID: orgID,
		PlatformUserID: "7",
		Username:       "alice",
		IsActive:       true,
	}
}

// issueToken mints a credential directly against the in-memory store and
// returns the one-time secret.
func issueToken(t *testing.T, store token.Store, spec token.IssueSpec) string {
	t.Helper()
	secret, _, err := token.Issue(context.Background(), store, spec)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return secret
}

func reqWithHeader(key, value string) *Request {
	h := http.Header{}
	if value != "" {
		h.Set(key, value)
	}
	return &Request{Header: h, Query: url.Values{}}
}

func reqWithQuery(key, value string) *Request {
	q := url.Values{}
	if value != "" {
		q.Set(key, value)
	}
	return &Request{Header: http.Header{}, Query: q}
}

func wantDenied(t *testing.T, res Result, kind Kind) {
	t.Helper()
	if res.Outcome != OutcomeDenied {
		t.Fatalf("outcome = %s, want denied", res.Outcome)
	}
	if res.Failure == nil || res.Failure.Kind != kind {
		t.Fatalf("failure = %+v, want kind %s", res.Failure, kind)
	}
}

func wantGranted(t *testing.T, res Result) *Grant {
	t.Helper()
	if res.Outcome != OutcomeGranted {
		t.Fatalf("outcome = %s (failure %+v), want granted", res.Outcome, res.Failure)
	}
	return res.Grant
}

var errStore = errors.New("store down")
