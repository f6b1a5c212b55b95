package user

import (
	"context"
	"database/sql"
	"encoding/json"

	"opsgrid.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, public_id, organization_id, platform_user_id, username, email, name,
	role, avatar_url, is_active, is_service_account, permissions, teams, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.PublicID == "" {
		u.PublicID = ids.NewPublic("U")
	}
	perms, _ := json.Marshal(u.Permissions)
	teams, _ := json.Marshal(u.Teams)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, public_id, organization_id, platform_user_id, username, email, name,
		 role, avatar_url, is_active, is_service_account, permissions, teams)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.PublicID, u.OrganizationID, u.PlatformUserID, u.Username, u.Email, u.Name,
		u.Role, u.AvatarURL, u.IsActive, u.IsServiceAccount, perms, teams,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *PGStore) FindByPublicID(ctx context.Context, orgID, publicID string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and public_id=$2`, orgID, publicID))
}

func (s *PGStore) FindByPlatformID(ctx context.Context, orgID, platformUserID string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and platform_user_id=$2`, orgID, platformUserID))
}

func (s *PGStore) FindByUsername(ctx context.Context, orgID, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and username=$2`, orgID, username))
}

func (s *PGStore) Upsert(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.PublicID == "" {
		u.PublicID = ids.NewPublic("U")
	}
	perms, _ := json.Marshal(u.Permissions)
	teams, _ := json.Marshal(u.Teams)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, public_id, organization_id, platform_user_id, username, email, name,
		 role, avatar_url, is_active, is_service_account, permissions, teams)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 on conflict (organization_id, platform_user_id) do update set
		 username=excluded.username, email=excluded.email, name=excluded.name, role=excluded.role,
		 avatar_url=excluded.avatar_url, permissions=excluded.permissions, teams=excluded.teams,
		 updated_at=now()`,
		u.ID, u.PublicID, u.OrganizationID, u.PlatformUserID, u.Username, u.Email, u.Name,
		u.Role, u.AvatarURL, u.IsActive, u.IsServiceAccount, perms, teams,
	)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u     User
		perms []byte
		teams []byte
	)
	if err := row.Scan(&u.ID, &u.PublicID, &u.OrganizationID, &u.PlatformUserID, &u.Username,
		&u.Email, &u.Name, &u.Role, &u.AvatarURL, &u.IsActive, &u.IsServiceAccount,
		&perms, &teams, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(perms, &u.Permissions)
	_ = json.Unmarshal(teams, &u.Teams)
	return &u, nil
}
