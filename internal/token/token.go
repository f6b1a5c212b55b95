package token

import (
	"errors"
	"time"
)

// ErrInvalidToken indicates no live credential matches the presented secret.
var ErrInvalidToken = errors.New("token: invalid token")

// Scheme discriminates credential kinds so lookups never scan unrelated
// credential types.
type Scheme string

const (
	SchemeAPI                Scheme = "api"
	SchemeScheduleExport     Scheme = "schedule_export"
	SchemeUserScheduleExport Scheme = "user_schedule_export"
	SchemeSlack              Scheme = "slack"
	SchemeMattermost         Scheme = "mattermost"
	SchemeGoogleOAuth2       Scheme = "google_oauth2"
	SchemeServiceAccount     Scheme = "service_account"
	SchemeBacksync           Scheme = "backsync"
)

// ServiceAccountPrefix is the fixed, publicly known prefix carried by
// service-account token strings. It is a dispatch discriminator, not a
// secret: its only job is routing the request to the right scheme.
const ServiceAccountPrefix = "ogsa_"

// keyPrefixLen is how many leading characters of a token string are stored
// in clear for indexed lookup. The digest of the full secret still decides
// the match.
const keyPrefixLen = 8

// Credential is a persisted token record. Immutable once issued except for
// revocation and the export activation toggle.
type Credential struct {
	ID             string
	KeyPrefix      string
	Digest         string
	Scheme         Scheme
	OrganizationID string

	// UserID is empty for machine credentials (backsync, some service
	// accounts).
	UserID string

	// ResourceID binds export tokens to one schedule or user public id.
	ResourceID string

	// Active is the export-token activation toggle; other schemes leave
	// it true.
	Active bool

	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the credential was explicitly deactivated.
func (c *Credential) Revoked() bool {
	return c != nil && c.RevokedAt != nil
}
