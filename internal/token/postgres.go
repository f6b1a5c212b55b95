package token

import (
	"context"
	"database/sql"
	"time"

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

const credColumns = `id, key_prefix, digest, scheme, organization_id, user_id, resource_id, active, revoked_at, created_at`

func (s *PGStore) Create(ctx context.Context, c *Credential) error {
	if c.ID == "" {
		c.ID = ids.NewPublic("T")
	}
	_, err := s.db.ExecContext(ctx,
		`insert into auth_tokens(id, key_prefix, digest, scheme, organization_id, user_id, resource_id, active)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.KeyPrefix, c.Digest, string(c.Scheme), c.OrganizationID,
		nullable(c.UserID), nullable(c.ResourceID), c.Active,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Credential, error) {
	creds, err := s.query(ctx, `select `+credColumns+` from auth_tokens where id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrInvalidToken
	}
	return creds[0], nil
}

func (s *PGStore) ListByPrefix(ctx context.Context, scheme Scheme, keyPrefix string) ([]*Credential, error) {
	return s.query(ctx,
		`select `+credColumns+` from auth_tokens
		 where scheme=$1 and key_prefix=$2 and revoked_at is null`,
		string(scheme), keyPrefix)
}

func (s *PGStore) ListByPrefixForOrg(ctx context.Context, scheme Scheme, orgID, keyPrefix string) ([]*Credential, error) {
	return s.query(ctx,
		`select `+credColumns+` from auth_tokens
		 where scheme=$1 and organization_id=$2 and key_prefix=$3 and revoked_at is null`,
		string(scheme), orgID, keyPrefix)
}

func (s *PGStore) Revoke(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_tokens set revoked_at=$1 where id=$2 and revoked_at is null`,
		time.Now().UTC(), id)
	return err
}

func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_tokens set active=$1 where id=$2`, active, id)
	return err
}

func (s *PGStore) query(ctx context.Context, q string, args ...any) ([]*Credential, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*Credential
	for rows.Next() {
		var (
			c          Credential
			scheme     string
			userID     sql.NullString
			resourceID sql.NullString
			revokedAt  sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.KeyPrefix, &c.Digest, &scheme, &c.OrganizationID,
			&userID, &resourceID, &c.Active, &revokedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Scheme = Scheme(scheme)
		c.UserID = userID.String
		c.ResourceID = resourceID.String
		if revokedAt.Valid {
			t := revokedAt.Time
			c.RevokedAt = &t
		}
		creds = append(creds, &c)
	}
	return creds, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
