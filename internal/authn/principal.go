package authn

import (
	"opsgrid.org/internal/org"
	"opsgrid.org/internal/user"
)

// PrincipalKind distinguishes who an authenticated request acts as.
type PrincipalKind int

const (
	// PrincipalUser is a concrete organization member.
	PrincipalUser PrincipalKind = iota

	// PrincipalServer is the synthetic machine identity used for trusted
	// server-to-server calls. It carries no user and must never pass
	// user-level permission checks.
	PrincipalServer

	// PrincipalPlugin is the anonymous-but-authenticated identity used
	// during platform initialization windows before a user is known.
	PrincipalPlugin
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "user"
	case PrincipalServer:
		return "server"
	case PrincipalPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Principal is the resolved identity attached to an authenticated request.
// User is always set for PrincipalUser and sometimes for PrincipalPlugin;
// Org may be nil for static-key server principals.
type Principal struct {
	Kind PrincipalKind
	User *user.User
	Org  *org.Organization
}

// NewUserPrincipal builds a concrete user identity.
func NewUserPrincipal(u *user.User, o *org.Organization) Principal {
	return Principal{Kind: PrincipalUser, User: u, Org: o}
}

// NewServerPrincipal builds the machine-to-machine identity.
func NewServerPrincipal(o *org.Organization) Principal {
	return Principal{Kind: PrincipalServer, Org: o}
}

// NewPluginPrincipal builds the initialization-window identity. The user is
// optional: tolerant plugin authentication attaches one when it can be
// resolved and leaves it nil otherwise.
func NewPluginPrincipal(o *org.Organization, u *user.User) Principal {
	return Principal{Kind: PrincipalPlugin, Org: o, User: u}
}
