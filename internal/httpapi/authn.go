package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"opsgrid.org/internal/authn"
	"opsgrid.org/internal/obs"
)

// resourceFunc extracts the resource id a token must be bound to.
type resourceFunc func(r *http.Request) string

// pathResource binds the chain's resource to a path wildcard.
func pathResource(name string) resourceFunc {
	return func(r *http.Request) string {
		return r.PathValue(name)
	}
}

// guard runs the chain against the request and either attaches the grant to
// the context or writes the classified failure.
func (a *API) guard(chain *authn.Chain, resource resourceFunc, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := authn.NewRequest(r)
		if resource != nil {
			req = req.WithResourceID(resource(r))
		}

		res := chain.Authenticate(r.Context(), req)
		if res.Outcome != authn.OutcomeGranted {
			respondAuthFailure(w, r, res.Failure)
			return
		}

		next(w, r.WithContext(authn.ContextWithGrant(r.Context(), res.Grant)))
	}
}

func respondAuthFailure(w http.ResponseWriter, r *http.Request, failure *authn.Error) {
	if failure == nil {
		failure = &authn.Error{Kind: authn.KindInternal, Message: "authentication failed"}
	}

	obs.Logger().Info("authentication failed",
		zap.String("path", r.URL.Path),
		zap.String("kind", string(failure.Kind)),
	)

	if failure.Retryable() {
		w.Header().Set("Retry-After", "3")
	}
	status := failure.HTTPStatus()
	msg := failure.Message
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs.
		msg = "authentication error"
	}
	writeJSON(w, status, map[string]any{
		"error":   string(failure.Kind),
		"message": msg,
	})
}
