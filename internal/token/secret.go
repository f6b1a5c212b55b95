package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"opsgrid.org/internal/ids"
)

// GenerateSecret returns a new random token string. Service-account secrets
// carry the fixed public prefix.
func GenerateSecret(scheme Scheme) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	if scheme == SchemeServiceAccount {
		return ServiceAccountPrefix + secret, nil
	}
	return secret, nil
}

// HashSecret digests a token string with a randomized salt. Two digests of
// the same secret differ, so lookup can never index on the digest itself.
func HashSecret(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifySecret reports whether the digest matches the secret. The
// comparison cost does not depend on where the candidate differs.
func VerifySecret(digest, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// KeyPrefix returns the indexed clear-text lookup key of a token string.
func KeyPrefix(secret string) string {
	if len(secret) <= keyPrefixLen {
		return secret
	}
	return secret[:keyPrefixLen]
}

// IssueSpec describes a credential to mint.
type IssueSpec struct {
	Scheme         Scheme
	OrganizationID string
	UserID         string
	ResourceID     string
}

// Issue mints a credential, persists it and returns the one-time visible
// token string. The string is never stored.
func Issue(ctx context.Context, store Store, spec IssueSpec) (string, *Credential, error) {
	secret, err := GenerateSecret(spec.Scheme)
	if err != nil {
		return "", nil, err
	}
	digest, err := HashSecret(secret)
	if err != nil {
		return "", nil, err
	}
	cred := &Credential{
		ID:             ids.NewPublic("T"),
		KeyPrefix:      KeyPrefix(secret),
		Digest:         digest,
		Scheme:         spec.Scheme,
		OrganizationID: spec.OrganizationID,
		UserID:         spec.UserID,
		ResourceID:     spec.ResourceID,
		Active:         true,
	}
	if err := store.Create(ctx, cred); err != nil {
		return "", nil, err
	}
	return secret, cred, nil
}

// FindBySecret is the canonical token validation: scope the scan to the
// scheme and the clear-text key prefix, then verify each candidate digest.
// Salted hashing is randomized, so each candidate must be inspected
// individually; the prefix bounds the scan.
func FindBySecret(ctx context.Context, store Store, scheme Scheme, secret string) (*Credential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrInvalidToken
	}
	candidates, err := store.ListByPrefix(ctx, scheme, KeyPrefix(secret))
	if err != nil {
		return nil, err
	}
	return verifyCandidates(candidates, secret)
}

// FindBySecretForOrg additionally scopes the scan to one organization.
// Service-account tokens resolve their organization before the secret
// check, so their credentials are only ever compared within that tenant.
func FindBySecretForOrg(ctx context.Context, store Store, scheme Scheme, orgID, secret string) (*Credential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" || orgID == "" {
		return nil, ErrInvalidToken
	}
	candidates, err := store.ListByPrefixForOrg(ctx, scheme, orgID, KeyPrefix(secret))
	if err != nil {
		return nil, err
	}
	return verifyCandidates(candidates, secret)
}

func verifyCandidates(candidates []*Credential, secret string) (*Credential, error) {
	for _, cred := range candidates {
		if cred.Revoked() {
			continue
		}
		if VerifySecret(cred.Digest, secret) {
			return cred, nil
		}
	}
	return nil, ErrInvalidToken
}
