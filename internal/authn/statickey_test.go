package authn

import (
	"context"
	"testing"
)

func TestStaticKey(t *testing.T) {
	ctx := context.Background()
	scheme := NewStaticKeyScheme("incident-key")

	t.Run("matching key grants a server principal without an org", func(t *testing.T) {
		grant := wantGranted(t, scheme.Authenticate(ctx, reqWithHeader(HeaderAuthorization, "incident-key")))
		if grant.Principal.Kind != PrincipalServer {
			t.Fatalf("principal kind = %s, want server", grant.Principal.Kind)
		}
		if grant.Principal.Org != nil || grant.Credential != nil {
			t.Fatal("static key grants carry no org or credential")
		}
	})

	t.Run("missing header", func(t *testing.T) {
		res := scheme.Authenticate(ctx, reqWithHeader(HeaderAuthorization, ""))
		wantDenied(t, res, KindMissingToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		res := scheme.Authenticate(ctx, reqWithHeader(HeaderAuthorization, "other"))
		wantDenied(t, res, KindInvalidToken)
	})

	t.Run("unset key rejects everything", func(t *testing.T) {
		disabled := NewStaticKeyScheme("")
		res := disabled.Authenticate(ctx, reqWithHeader(HeaderAuthorization, ""))
		wantDenied(t, res, KindMissingToken)
		res = disabled.Authenticate(ctx, reqWithHeader(HeaderAuthorization, "anything"))
		wantDenied(t, res, KindInvalidToken)
	})
}
