package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultTable = "schema_migrations"

// ErrNoHistory is returned by Down when nothing has been applied yet.
var ErrNoHistory = errors.New("migrate: no applied migrations")

// A migration is one versioned DDL step: NAME.up.sql and optionally
// NAME.down.sql in the migrations directory.
type migration struct {
	Name string
	Up   string
	Down string
}

// Manager applies the .up.sql files of a directory in lexical order, one
// transaction per file, recording each name in a bookkeeping table.
type Manager struct {
	db    *sql.DB
	dir   string
	table string
}

// Option configures Manager.
type Option func(*Manager)

// WithTable overrides the bookkeeping table name.
func WithTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.table = name
		}
	}
}

func NewManager(db *sql.DB, dir string, opts ...Option) *Manager {
	m := &Manager{db: db, dir: dir, table: defaultTable}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every migration not yet recorded.
func (m *Manager) Up(ctx context.Context) error {
	migs, err := m.discover()
	if err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	for _, mig := range migs {
		if done[mig.Name] {
			continue
		}
		if err := m.run(ctx, mig.Up); err != nil {
			return fmt.Errorf("migrate %s: %w", mig.Name, err)
		}
		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf(`insert into %s(name) values ($1)`, m.table), mig.Name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	migs, err := m.discover()
	if err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return ErrNoHistory
	}
	last := applied[len(applied)-1]
	var target *migration
	for i := range migs {
		if migs[i].Name == last {
			target = &migs[i]
			break
		}
	}
	if target == nil || target.Down == "" {
		return fmt.Errorf("migrate: no down file for %s", last)
	}
	if err := m.run(ctx, target.Down); err != nil {
		return fmt.Errorf("rollback %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, m.table), last)
	return err
}

// Status returns the applied migration names in application order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	return m.applied(ctx)
}

// discover reads the migrations directory and pairs up/down files by name.
func (m *Manager) discover() ([]migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	byName := make(map[string]*migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var name, kind string
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			name, kind = strings.TrimSuffix(e.Name(), ".up.sql"), "up"
		case strings.HasSuffix(e.Name(), ".down.sql"):
			name, kind = strings.TrimSuffix(e.Name(), ".down.sql"), "down"
		default:
			continue
		}
		mig := byName[name]
		if mig == nil {
			mig = &migration{Name: name}
			byName[name] = mig
		}
		path := filepath.Join(m.dir, e.Name())
		if kind == "up" {
			mig.Up = path
		} else {
			mig.Down = path
		}
	}
	migs := make([]migration, 0, len(byName))
	for _, mig := range byName {
		if mig.Up == "" {
			return nil, fmt.Errorf("migrate: %s has a down file but no up file", mig.Name)
		}
		migs = append(migs, *mig)
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Name < migs[j].Name })
	return migs, nil
}

// run executes one SQL file inside a transaction.
func (m *Manager) run(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) applied(ctx context.Context) ([]string, error) {
	ddl := fmt.Sprintf(`create table if not exists %s (
		name text primary key,
		applied_at timestamptz not null default now()
	)`, m.table)
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at, name`, m.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// splitStatements cuts a script on semicolons outside single-quoted strings.
func splitStatements(script string) []string {
	var out []string
	var buf strings.Builder
	quoted := false
	for _, r := range script {
		if r == '\'' {
			quoted = !quoted
		}
		if r == ';' && !quoted {
			if s := strings.TrimSpace(buf.String()); s != "" {
				out = append(out, s)
			}
			buf.Reset()
			continue
		}
		buf.WriteRune(r)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		out = append(out, s)
	}
	return out
}
