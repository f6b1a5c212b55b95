package authn

import (
	"context"

	"opsgrid.org/internal/obs"
)

// Chain runs schemes in order. A grant or a denial from any scheme ends the
// chain; a skip hands the request to the next scheme. By default the first
// denial is final, which keeps failure reasons precise. WithDenyFallthrough
// lets later schemes try anyway, reporting the first denial if none grants.
type Chain struct {
	schemes         []Scheme
	denyFallthrough bool
}

// ChainOption configures Chain.
type ChainOption func(*Chain)

// WithDenyFallthrough makes a denial behave like a skip until the chain is
// exhausted.
func WithDenyFallthrough() ChainOption {
	return func(c *Chain) { c.denyFallthrough = true }
}

func NewChain(schemes []Scheme, opts ...ChainOption) *Chain {
	c := &Chain{schemes: schemes}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate runs the chain against the request.
func (c *Chain) Authenticate(ctx context.Context, req *Request) Result {
	var firstDenial *Result
	for _, s := range c.schemes {
		res := s.Authenticate(ctx, req)
		obs.RecordAuthAttempt(s.Name(), res.Outcome.String())
		switch res.Outcome {
		case OutcomeGranted:
			return res
		case OutcomeSkipped:
			continue
		default:
			if !c.denyFallthrough {
				return res
			}
			if firstDenial == nil {
				firstDenial = &res
			}
		}
	}
	if firstDenial != nil {
		return *firstDenial
	}
	return Denied(KindMissingToken, "No authentication credentials provided.")
}
