package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"opsgrid.org/internal/audit"
	"opsgrid.org/internal/authn"
	"opsgrid.org/internal/token"
)

// issueRequest is the body of POST /api/v1/tokens.
type issueRequest struct {
	Scheme     string `json:"scheme"`
	ResourceID string `json:"resource_id,omitempty"`
}

// issuableSchemes are the credential kinds clients may mint over the API.
// Plugin and static-key credentials are never minted here.
var issuableSchemes = map[token.Scheme]bool{
	token.SchemeAPI:                true,
	token.SchemeScheduleExport:     true,
	token.SchemeUserScheduleExport: true,
	token.SchemeSlack:              true,
	token.SchemeMattermost:         true,
	token.SchemeGoogleOAuth2:       true,
	token.SchemeBacksync:           true,
}

// IssueToken mints a credential for the caller's organization. The clear
// token string appears once in the response and is never retrievable again.
func (a *API) IssueToken(w http.ResponseWriter, r *http.Request) {
	p, ok := authn.PrincipalFromContext(r.Context())
	if !ok || p.Org == nil {
		respondError(w, http.StatusUnauthorized, "no authenticated organization")
		return
	}

	var body issueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scheme := token.Scheme(body.Scheme)
	if !issuableSchemes[scheme] {
		respondError(w, http.StatusBadRequest, "unknown or non-issuable scheme")
		return
	}

	spec := token.IssueSpec{
		Scheme:         scheme,
		OrganizationID: p.Org.ID,
		ResourceID:     body.ResourceID,
	}
	if p.User != nil {
		spec.UserID = p.User.ID
	}
	if scheme != token.SchemeBacksync && spec.UserID == "" {
		respondError(w, http.StatusBadRequest, "scheme requires a user principal")
		return
	}

	secret, cred, err := token.Issue(r.Context(), a.deps.Tokens, spec)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	_ = audit.LogEvent(r.Context(), "token.issued",
		zap.String("token_id", cred.ID),
		zap.String("scheme", string(cred.Scheme)),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     cred.ID,
		"scheme": cred.Scheme,
		"token":  secret,
	})
}

// RevokeToken permanently invalidates a credential of the caller's
// organization.
func (a *API) RevokeToken(w http.ResponseWriter, r *http.Request) {
	p, ok := authn.PrincipalFromContext(r.Context())
	if !ok || p.Org == nil {
		respondError(w, http.StatusUnauthorized, "no authenticated organization")
		return
	}

	id := r.PathValue("id")
	cred, err := a.deps.Tokens.Find(r.Context(), id)
	if err != nil || cred.OrganizationID != p.Org.ID {
		respondError(w, http.StatusNotFound, "token not found")
		return
	}

	if err := a.deps.Tokens.Revoke(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "could not revoke token")
		return
	}

	_ = audit.LogEvent(r.Context(), "token.revoked",
		zap.String("token_id", id),
		zap.String("scheme", string(cred.Scheme)),
	)

	w.WriteHeader(http.StatusNoContent)
}
