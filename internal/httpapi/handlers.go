package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"opsgrid.org/internal/authn"
	"opsgrid.org/internal/obs"
	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the HTTP layer needs wired in.
type Deps struct {
	Version string
	Ready   ReadyProbe

	Tokens token.Store
	Users  user.Store
	Orgs   org.Store
	Syncer user.Syncer

	Checker  authn.TokenChecker
	Resolver authn.OrganizationResolver

	IncidentStaticKey string
}

// API is the HTTP layer. Each route group is guarded by the chain of
// authentication schemes that may legitimately reach it.
type API struct {
	mux     *http.ServeMux
	deps    Deps
	version string

	apiChain            *authn.Chain
	scheduleExportChain *authn.Chain
	userExportChain     *authn.Chain
	socialChain         *authn.Chain
	backsyncChain       *authn.Chain
	pluginChain         *authn.Chain
	strictPluginChain   *authn.Chain
	incidentChain       *authn.Chain
}

func New(deps Deps) *API {
	a := &API{
		mux:     http.NewServeMux(),
		deps:    deps,
		version: deps.Version,
	}

	serviceAccount := authn.NewServiceAccountScheme(deps.Tokens, deps.Users, deps.Resolver)
	apiToken := authn.NewAPITokenScheme(deps.Tokens, deps.Users, deps.Orgs)

	// Service-account tokens carry a fixed prefix, so the scheme skips
	// cleanly for plain API tokens and the chain falls through.
	a.apiChain = authn.NewChain([]authn.Scheme{serviceAccount, apiToken})

	a.scheduleExportChain = authn.NewChain([]authn.Scheme{
		authn.NewScheduleExportScheme(deps.Tokens, deps.Users, deps.Orgs),
	})
	a.userExportChain = authn.NewChain([]authn.Scheme{
		authn.NewUserScheduleExportScheme(deps.Tokens, deps.Users, deps.Orgs),
	})

	a.socialChain = authn.NewChain([]authn.Scheme{
		authn.NewSlackTokenScheme(deps.Tokens, deps.Users, deps.Orgs),
		authn.NewMattermostTokenScheme(deps.Tokens, deps.Users, deps.Orgs),
		authn.NewGoogleOAuth2TokenScheme(deps.Tokens, deps.Users, deps.Orgs),
	})

	a.backsyncChain = authn.NewChain([]authn.Scheme{
		authn.NewBacksyncScheme(deps.Tokens, deps.Orgs),
	})

	a.pluginChain = authn.NewChain([]authn.Scheme{
		authn.NewPluginScheme(deps.Checker, deps.Orgs, deps.Users, deps.Syncer),
	})
	a.strictPluginChain = authn.NewChain([]authn.Scheme{
		authn.NewStrictPluginScheme(deps.Checker, deps.Orgs, deps.Users, deps.Syncer),
	})

	a.incidentChain = authn.NewChain([]authn.Scheme{
		authn.NewStaticKeyScheme(deps.IncidentStaticKey),
	})

	a.routes()
	return a
}

func (a *API) routes() {
	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// First-party API, reachable with API and service-account tokens.
	a.mux.HandleFunc("GET /api/v1/whoami", a.guard(a.apiChain, nil, a.Whoami))
	a.mux.HandleFunc("GET /api/v1/resolution_notes", a.guard(a.apiChain, nil, a.ResolutionNotes))
	a.mux.HandleFunc("POST /api/v1/tokens", a.guard(a.apiChain, nil, a.IssueToken))
	a.mux.HandleFunc("DELETE /api/v1/tokens/{id}", a.guard(a.apiChain, nil, a.RevokeToken))

	// Calendar export, token bound to the resource in the path.
	a.mux.HandleFunc("GET /api/v1/schedules/{id}/export",
		a.guard(a.scheduleExportChain, pathResource("id"), a.ScheduleExport))
	a.mux.HandleFunc("GET /api/v1/users/{id}/schedule/export",
		a.guard(a.userExportChain, pathResource("id"), a.UserScheduleExport))

	// Chat integrations post back with a provider token in the query.
	a.mux.HandleFunc("GET /api/v1/chatops/link", a.guard(a.socialChain, nil, a.ChatopsLink))

	// Server-to-server callbacks.
	a.mux.HandleFunc("POST /api/v1/backsync", a.guard(a.backsyncChain, nil, a.Backsync))

	// Incident ingestion webhook, pre-shared key only.
	a.mux.HandleFunc("POST /api/v1/incidents", a.guard(a.incidentChain, nil, a.IncidentWebhook))

	// Plugin-proxied routes. The tolerant variant serves install-time
	// status calls; the strict one serves anything acting as a user.
	a.mux.HandleFunc("GET /api/internal/v1/status", a.guard(a.pluginChain, nil, a.PluginStatus))
	a.mux.HandleFunc("GET /api/internal/v1/user", a.guard(a.strictPluginChain, nil, a.PluginUser))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}

// Handler returns the fully wrapped http.Handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "opsgrid-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "opsgrid-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// Whoami echoes the resolved identity.
func (a *API) Whoami(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principalView(r))
}

// ResolutionNotes is the read model scoped to the caller's organization.
// Note content lives in the incident pipeline; this surface only proves the
// org-scoped read path.
func (a *API) ResolutionNotes(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFromContext(r.Context())
	resp := map[string]any{"results": []any{}}
	if p.Org != nil {
		resp["org_id"] = p.Org.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) ScheduleExport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule": r.PathValue("id"),
		"granted":  principalView(r),
	})
}

func (a *API) UserScheduleExport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    r.PathValue("id"),
		"granted": principalView(r),
	})
}

func (a *API) ChatopsLink(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"linked":  true,
		"granted": principalView(r),
	})
}

func (a *API) Backsync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
	})
}

func (a *API) IncidentWebhook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
	})
}

func (a *API) PluginStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFromContext(r.Context())
	resp := map[string]any{
		"status":  "ok",
		"version": a.version,
	}
	if p.Org != nil {
		resp["org_id"] = p.Org.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) PluginUser(w http.ResponseWriter, r *http.Request) {
	p, ok := authn.PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		respondError(w, http.StatusUnauthorized, "no user resolved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       p.User.PublicID,
		"username": p.User.Username,
		"email":    p.User.Email,
		"role":     p.User.Role,
	})
}

// principalView renders the authenticated identity for response bodies.
func principalView(r *http.Request) map[string]any {
	p, ok := authn.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	view := map[string]any{"kind": p.Kind.String()}
	if p.Org != nil {
		view["org_id"] = p.Org.ID
	}
	if p.User != nil {
		view["user_id"] = p.User.PublicID
		view["username"] = p.User.Username
	}
	return view
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
