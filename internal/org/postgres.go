package org

import (
	"context"
	"database/sql"

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

const orgColumns = `id, stack_id, url, org_slug, stack_slug, is_moved, deleted_at, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, o *Organization) error {
	if o.ID == "" {
		o.ID = ids.NewPublic("O")
	}
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, stack_id, url, org_slug, stack_slug, is_moved)
		 values($1,$2,$3,$4,$5,$6)`,
		o.ID, o.StackID, o.URL, o.OrgSlug, o.StackSlug, o.IsMoved,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id=$1`, id))
}

func (s *PGStore) FindByStackID(ctx context.Context, stackID string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where stack_id=$1`, stackID))
}

func (s *PGStore) FindByURL(ctx context.Context, url string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where url=$1`, url))
}

func (s *PGStore) FindBySlugs(ctx context.Context, orgSlug, stackSlug string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where org_slug=$1 and stack_slug=$2`, orgSlug, stackSlug))
}

func (s *PGStore) scanOne(row *sql.Row) (*Organization, error) {
	var (
		o         Organization
		deletedAt sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.StackID, &o.URL, &o.OrgSlug, &o.StackSlug,
		&o.IsMoved, &deletedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		o.DeletedAt = &t
	}
	return &o, nil
}
