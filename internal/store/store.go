package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotInitialized is returned when a store has no collection yet.
var ErrNotInitialized = errors.New("store not initialized")

// ErrAlreadyInitialized is returned by Init on a store that holds a collection.
var ErrAlreadyInitialized = errors.New("store already initialized")

// ErrNonEmptyGenesis is returned by Init for a state that already has
// records or advanced counters.
var ErrNonEmptyGenesis = errors.New("genesis state must be empty")

// pragmas are applied on every open. busy_timeout covers a second process
// (a `trace` while an `invoke` commits) waiting on the write lock.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// migration upgrades a database created by an older schema.sql. Each one
// must be idempotent: fresh databases already carry the change.
type migration struct {
	version int
	stmt    string
}

var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_journal_action ON journal(action, seq)`},
	{2, `CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner, id)`},
}

// currentSchemaVersion is the user_version a fully migrated database carries.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the durable side of a registry: collection meta, live records
// and the journal of every mutating call, in one SQLite file.
//
// A Store holds a single connection. Commits are serialized by the engine;
// readers in other processes see committed state through WAL.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas and brings
// the schema up to date. Opening does not initialize a collection; see Init.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration newer than the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("write user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad-hoc queries in tools and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragma reads a single pragma value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
