package authn

import (
	"context"

	"opsgrid.org/internal/token"
)

// Outcome is the explicit three-state result of running one scheme. A
// skipped scheme has no opinion about the request and lets the next scheme
// in the chain run; a denial is definitive.
type Outcome int

const (
	OutcomeDenied Outcome = iota
	OutcomeGranted
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "denied"
	}
}

// Grant is a successful authentication: the resolved principal plus the
// credential that proved it. Credential is nil for static-key grants.
type Grant struct {
	Principal  Principal
	Credential *token.Credential
}

// Result is what a scheme returns. Exactly one of Grant or Failure is set
// for granted/denied outcomes; both are nil when skipped.
type Result struct {
	Outcome Outcome
	Grant   *Grant
	Failure *Error
}

// Granted builds a success result.
func Granted(p Principal, cred *token.Credential) Result {
	return Result{Outcome: OutcomeGranted, Grant: &Grant{Principal: p, Credential: cred}}
}

// Skipped signals the scheme does not apply to this request.
func Skipped() Result {
	return Result{Outcome: OutcomeSkipped}
}

// Denied builds a definitive failure.
func Denied(kind Kind, format string, args ...any) Result {
	return Result{Outcome: OutcomeDenied, Failure: newError(kind, format, args...)}
}

// DeniedErr wraps an already-built failure.
func DeniedErr(err *Error) Result {
	return Result{Outcome: OutcomeDenied, Failure: err}
}

// Scheme is one authentication strategy. Implementations are stateless per
// request.
type Scheme interface {
	Name() string
	Authenticate(ctx context.Context, req *Request) Result
}
