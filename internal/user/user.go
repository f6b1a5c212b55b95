package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user: not found")

// User is an organization member mirrored from the hosting platform.
type User struct {
	ID             string
	PublicID       string
	OrganizationID string

	// PlatformUserID is the identifier the platform uses for this user in
	// request contexts. Not globally unique, only per organization.
	PlatformUserID string

	Username         string
	Email            string
	Name             string
	Role             string
	AvatarURL        string
	IsActive         bool
	IsServiceAccount bool
	Permissions      []string
	Teams            []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncPermission is one entry of the permission list carried in a user-sync
// payload.
type SyncPermission struct {
	Action string `json:"action"`
}

// SyncPayload is the full user description a platform request may carry in
// the X-OpsGrid-User-Context header when the user is not known yet.
type SyncPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Login       string           `json:"login"`
	Email       string           `json:"email"`
	Role        string           `json:"role"`
	AvatarURL   string           `json:"avatar_url"`
	Permissions []SyncPermission `json:"permissions"`
	Teams       []string         `json:"teams"`
}

// Empty reports whether the payload carries no user identity at all.
func (p SyncPayload) Empty() bool {
	return p.ID == "" && p.Login == ""
}
