package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is one connection setting and the value PRAGMA reports once it is
// in effect.
type pragma struct {
	name  string
	set   string
	check string
}

var pragmas = []pragma{
	{name: "journal_mode", set: "WAL", check: "wal"},
	{name: "synchronous", set: "NORMAL", check: "1"},
	{name: "busy_timeout", set: "5000", check: "5000"},
	{name: "foreign_keys", set: "ON", check: "1"},
}

// migration upgrades the schema to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on databases whose user_version is below their
// version. schema.sql always creates the version-0 tables.
var migrations = []migration{
	{
		version: 1,
		name:    "unique trigger keys",
		stmt:    `CREATE UNIQUE INDEX IF NOT EXISTS idx_macros_trigger_unique ON macros(trigger_key)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = migrations[len(migrations)-1].version

// Store is the SQLite macro store. It implements engine.MacroStore.
//
// Each Save bumps a revision kept in the meta table. A Store remembers the
// revision it last loaded or saved, and Save fails with ErrStale when
// another handle has written the list since then.
type Store struct {
	db   *sql.DB
	path string

	revMu   sync.Mutex
	seen    int64
	tracked bool
}

// Open opens the database at path, creating the file and its directory if
// needed, and brings the schema up to SchemaVersion.
//
// The pool is limited to one connection: every Save rewrites the whole
// table, so writers never overlap anyway.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open store %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return s.migrate()
}

// migrate applies each pending migration in its own transaction together
// with the user_version bump, so a failed step leaves the previous version
// in place.
func (s *Store) migrate() error {
	version, err := s.Version()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: set version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// Version returns the schema version recorded in the database.
func (s *Store) Version() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Meta returns the value stored under key. ok is false when the key is
// unset.
func (s *Store) Meta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read meta %q: %w", key, err)
	}
	return value, true, nil
}

// SetMeta stores value under key, replacing any previous value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("write meta %q: %w", key, err)
	}
	return nil
}

// pragmaValue reads the current value of a pragma.
func (s *Store) pragmaValue(name string) (string, error) {
	var v string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return v, nil
}
