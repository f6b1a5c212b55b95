package authn

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"opsgrid.org/internal/platform"
	"opsgrid.org/internal/user"
)

// ParseInstanceContext reads the X-Instance-Context header. The header is
// mandatory for plugin requests; malformed JSON or missing identifiers is a
// hard failure, never a skip.
func ParseInstanceContext(h http.Header) (platform.InstanceContext, *Error) {
	raw := strings.TrimSpace(h.Get(HeaderInstanceContext))
	if raw == "" {
		return platform.InstanceContext{}, newError(KindMalformedContext, "No instance context provided.")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return platform.InstanceContext{}, newError(KindMalformedContext, "Instance context must be a JSON object.")
	}

	stackID, okStack := stringField(fields, "stack_id")
	orgID, okOrg := stringField(fields, "org_id")
	if !okStack || !okOrg {
		return platform.InstanceContext{}, newError(KindMalformedContext, "Invalid instance context.")
	}
	return platform.InstanceContext{StackID: stackID, OrgID: orgID}, nil
}

// PlatformUserContext identifies the calling platform user, parsed from the
// X-Platform-Context header.
type PlatformUserContext struct {
	UserID           string
	Login            string
	Role             string
	IsServiceAccount bool
}

// ParsePlatformUserContext reads the X-Platform-Context header. A missing
// header yields (nil, nil) so tolerant callers can treat it as "no user";
// malformed JSON is a hard failure. Both historical spellings of the user
// id key ("UserId" and "UserID") are accepted.
func ParsePlatformUserContext(h http.Header) (*PlatformUserContext, *Error) {
	raw := strings.TrimSpace(h.Get(HeaderPlatformContext))
	if raw == "" {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, newError(KindMalformedContext, "Platform context must be a JSON object.")
	}

	ctx := &PlatformUserContext{}
	if v, ok := stringField(fields, "UserId"); ok {
		ctx.UserID = v
	} else if v, ok := stringField(fields, "UserID"); ok {
		ctx.UserID = v
	}
	if v, ok := stringField(fields, "Login"); ok {
		ctx.Login = v
	}
	if v, ok := stringField(fields, "Role"); ok {
		ctx.Role = v
	}
	if rawFlag, ok := fields["IsServiceAccount"]; ok {
		_ = json.Unmarshal(rawFlag, &ctx.IsServiceAccount)
	}
	return ctx, nil
}

// ParseSyncPayload reads the X-OpsGrid-User-Context header carrying a full
// user description. Present reports whether the header was sent at all.
func ParseSyncPayload(h http.Header) (payload user.SyncPayload, present bool, failure *Error) {
	raw := strings.TrimSpace(h.Get(HeaderUserSyncContext))
	if raw == "" {
		return user.SyncPayload{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return user.SyncPayload{}, true, newError(KindMalformedContext, "User context must be a JSON object.")
	}
	return payload, true, nil
}

// stringField reads a JSON field that may arrive as a string or a number
// and normalizes it to a non-empty string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), n.String() != ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return fmt.Sprintf("%.0f", f), true
	}
	return "", false
}
