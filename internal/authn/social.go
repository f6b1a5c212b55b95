package authn

import (
	"context"

	"opsgrid.org/internal/org"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

// SocialTokenScheme authenticates OAuth-linked social accounts during
// chat-integration flows. The token travels in a provider-specific query
// parameter; an absent parameter means the scheme has no opinion, so
// several social schemes can guard the same endpoint. A token that is
// present but unknown is a definitive failure and never falls through.
type SocialTokenScheme struct {
	name   string
	param  string
	scheme token.Scheme

	tokens token.Store
	users  user.Store
	orgs   org.Store
}

var _ Scheme = (*SocialTokenScheme)(nil)

func NewSlackTokenScheme(tokens token.Store, users user.Store, orgs org.Store) *SocialTokenScheme {
	return &SocialTokenScheme{
		name: "slack_token", param: SlackTokenParam, scheme: token.SchemeSlack,
		tokens: tokens, users: users, orgs: orgs,
	}
}

func NewMattermostTokenScheme(tokens token.Store, users user.Store, orgs org.Store) *SocialTokenScheme {
	return &SocialTokenScheme{
		name: "mattermost_token", param: MattermostTokenParam, scheme: token.SchemeMattermost,
		tokens: tokens, users: users, orgs: orgs,
	}
}

func NewGoogleOAuth2TokenScheme(tokens token.Store, users user.Store, orgs org.Store) *SocialTokenScheme {
	return &SocialTokenScheme{
		name: "google_oauth2_token", param: GoogleOAuth2TokenParam, scheme: token.SchemeGoogleOAuth2,
		tokens: tokens, users: users, orgs: orgs,
	}
}

func (s *SocialTokenScheme) Name() string { return s.name }

func (s *SocialTokenScheme) Authenticate(ctx context.Context, req *Request) Result {
	secret := req.Query.Get(s.param)
	if secret == "" {
		return Skipped()
	}

	cred, failure := findCredential(ctx, s.tokens, s.scheme, secret)
	if failure != nil {
		return DeniedErr(failure)
	}

	o, failure := loadCredentialOrg(ctx, s.orgs, cred)
	if failure != nil {
		return DeniedErr(failure)
	}

	u, failure := loadCredentialUser(ctx, s.users, cred)
	if failure != nil {
		return DeniedErr(failure)
	}
	return Granted(NewUserPrincipal(u, o), cred)
}
