package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/platform"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

type stubOrgStore struct {
	orgs map[string]*org.Organization
}

func (s *stubOrgStore) Create(ctx context.Context, o *org.Organization) error { return nil }

func (s *stubOrgStore) Find(ctx context.Context, id string) (*org.Organization, error) {
	if o, ok := s.orgs[id]; ok {
		return o, nil
	}
	return nil, org.ErrNotFound
}

func (s *stubOrgStore) FindByStackID(ctx context.Context, stackID string) (*org.Organization, error) {
	for _, o := range s.orgs {
		if o.StackID == stackID {
			return o, nil
		}
	}
	return nil, org.ErrNotFound
}

func (s *stubOrgStore) FindByURL(ctx context.Context, u string) (*org.Organization, error) {
	return nil, org.ErrNotFound
}

func (s *stubOrgStore) FindBySlugs(ctx context.Context, orgSlug, stackSlug string) (*org.Organization, error) {
	return nil, org.ErrNotFound
}

type stubUserStore struct {
	users map[string]*user.User
}

func (s *stubUserStore) Create(ctx context.Context, u *user.User) error { return nil }

func (s *stubUserStore) Find(ctx context.Context, id string) (*user.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (s *stubUserStore) FindByPublicID(ctx context.Context, orgID, publicID string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (s *stubUserStore) FindByPlatformID(ctx context.Context, orgID, platformUserID string) (*user.User, error) {
	for _, u := range s.users {
		if u.OrganizationID == orgID && u.PlatformUserID == platformUserID {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *stubUserStore) FindByUsername(ctx context.Context, orgID, username string) (*user.User, error) {
	for _, u := range s.users {
		if u.OrganizationID == orgID && u.Username == username {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *stubUserStore) Upsert(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = "u-synced"
	}
	s.users[u.ID] = u
	return nil
}

type stubResolver struct {
	org *org.Organization
	err error
}

func (r *stubResolver) Resolve(ctx context.Context, in org.ResolveInput) (*org.Organization, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.org, nil
}

type stubChecker struct{ err error }

func (c *stubChecker) CheckToken(ctx context.Context, tok string, ic platform.InstanceContext) (*platform.CheckedToken, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &platform.CheckedToken{StackID: ic.StackID, OrgID: ic.OrgID}, nil
}

type fixture struct {
	api    *API
	tokens *token.MemoryStore
	org    *org.Organization
	user   *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	o := &org.Organization{ID: "o-1", StackID: "42", URL: "https://example.opsgrid.net"}
	u := &user.User{
		ID: "u-1", PublicID: "U1", OrganizationID: o.ID,
		PlatformUserID: "7", Username: "alice", IsActive: true,
	}
	tokens := token.NewMemoryStore()
	users := &stubUserStore{users: map[string]*user.User{u.ID: u}}
	api := New(Deps{
		Version:           "test",
		Tokens:            tokens,
		Users:             users,
		Orgs:              &stubOrgStore{orgs: map[string]*org.Organization{o.ID: o}},
		Syncer:            user.NewStoreSyncer(users),
		Checker:           &stubChecker{},
		Resolver:          &stubResolver{org: o},
		IncidentStaticKey: "incident-key",
	})
	return &fixture{api: api, tokens: tokens, org: o, user: u}
}

func (f *fixture) issue(t *testing.T, spec token.IssueSpec) string {
	t.Helper()
	secret, _, err := token.Issue(context.Background(), f.tokens, spec)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return secret
}

func (f *fixture) do(t *testing.T, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info = %d", rec.Code)
	}
}

func TestWhoamiWithAPIToken(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeAPI, OrganizationID: f.org.ID, UserID: f.user.ID,
	})

	rec := f.do(t, http.MethodGet, "/api/v1/whoami", map[string]string{"Authorization": secret})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["kind"] != "user" || body["username"] != "alice" {
		t.Fatalf("body = %v", body)
	}
}

func TestWhoamiWithServiceAccountToken(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeServiceAccount, OrganizationID: f.org.ID,
	})

	// The chain tries the service-account scheme first; an API token would
	// have been skipped through to the next scheme.
	rec := f.do(t, http.MethodGet, "/api/v1/whoami", map[string]string{
		"Authorization":          secret,
		"X-Platform-Instance-ID": "42",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["kind"] != "server" {
		t.Fatalf("body = %v", body)
	}
}

func TestWhoamiFailures(t *testing.T) {
	f := newFixture(t)

	t.Run("no credentials", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/whoami", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := decode(t, rec); body["error"] != "MISSING_TOKEN" {
			t.Fatalf("body = %v", body)
		}
	})

	t.Run("bogus token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/whoami", map[string]string{"Authorization": "nope"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestResolutionNotes(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeAPI, OrganizationID: f.org.ID, UserID: f.user.ID,
	})

	rec := f.do(t, http.MethodGet, "/api/v1/resolution_notes", map[string]string{"Authorization": secret})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["org_id"] != f.org.ID {
		t.Fatalf("body = %v", body)
	}
}

func TestDeletedOrganizationIsForbidden(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeAPI, OrganizationID: f.org.ID, UserID: f.user.ID,
	})
	now := time.Now().UTC()
	f.org.DeletedAt = &now

	rec := f.do(t, http.MethodGet, "/api/v1/whoami", map[string]string{"Authorization": secret})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "ORGANIZATION_DELETED" {
		t.Fatalf("body = %v", body)
	}
}

func TestSyncInProgressIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.api.deps.Resolver = &stubResolver{err: org.ErrSyncInProgress}

	// Rebuild so the chains pick up the failing resolver.
	f.api = New(f.api.deps)

	rec := f.do(t, http.MethodGet, "/api/v1/whoami", map[string]string{
		"Authorization": token.ServiceAccountPrefix + "whatever",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestScheduleExportRoute(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme:         token.SchemeScheduleExport,
		OrganizationID: f.org.ID,
		UserID:         f.user.ID,
		ResourceID:     "S1",
	})

	rec := f.do(t, http.MethodGet, "/api/v1/schedules/S1/export?token="+secret, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/schedules/S2/export?token="+secret, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "RESOURCE_MISMATCH" {
		t.Fatalf("body = %v", body)
	}
}

func TestChatopsRoute(t *testing.T) {
	f := newFixture(t)
	secret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeSlack, OrganizationID: f.org.ID, UserID: f.user.ID,
	})

	rec := f.do(t, http.MethodGet, "/api/v1/chatops/link?slack_auth_token="+secret, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	// No provider parameter at all: every social scheme skips.
	rec = f.do(t, http.MethodGet, "/api/v1/chatops/link", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "MISSING_TOKEN" {
		t.Fatalf("body = %v", body)
	}
}

func TestIncidentWebhook(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/incidents", map[string]string{"Authorization": "incident-key"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/incidents", map[string]string{"Authorization": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPluginRoutes(t *testing.T) {
	f := newFixture(t)
	headers := map[string]string{
		"Authorization":      "Bearer plugin-token",
		"X-Instance-Context": `{"stack_id":"42","org_id":"1"}`,
	}

	t.Run("status works without a user", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/internal/v1/status", headers)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("user endpoint requires a resolvable user", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/internal/v1/user", headers)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}

		withUser := map[string]string{"X-Platform-Context": `{"UserId":"7"}`}
		for k, v := range headers {
			withUser[k] = v
		}
		rec = f.do(t, http.MethodGet, "/api/internal/v1/user", withUser)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		if body := decode(t, rec); body["username"] != "alice" {
			t.Fatalf("body = %v", body)
		}
	})
}

func TestIssueAndRevokeToken(t *testing.T) {
	f := newFixture(t)
	apiSecret := f.issue(t, token.IssueSpec{
		Scheme: token.SchemeAPI, OrganizationID: f.org.ID, UserID: f.user.ID,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens",
		strings.NewReader(`{"scheme":"schedule_export","resource_id":"S9"}`))
	req.Header.Set("Authorization", apiSecret)
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id, _ := body["id"].(string)
	secret, _ := body["token"].(string)
	if id == "" || secret == "" {
		t.Fatalf("body = %v", body)
	}

	// The minted token authenticates against its bound schedule.
	rec2 := f.do(t, http.MethodGet, "/api/v1/schedules/S9/export?token="+secret, nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("export status = %d body = %s", rec2.Code, rec2.Body.String())
	}

	// Revoke it and the same request fails.
	rec3 := f.do(t, http.MethodDelete, "/api/v1/tokens/"+id, map[string]string{"Authorization": apiSecret})
	if rec3.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d body = %s", rec3.Code, rec3.Body.String())
	}
	rec4 := f.do(t, http.MethodGet, "/api/v1/schedules/S9/export?token="+secret, nil)
	if rec4.Code != http.StatusUnauthorized {
		t.Fatalf("post-revoke status = %d, want 401", rec4.Code)
	}
}
