package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure-Go embedded SQLite driver
)

//go:embed schema.sql
var baselineSchema string

// Store wraps the embedded SQLite connection with production-grade pragmas
// and exposes typed accessors for every pipeline entity.
type Store struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// Config configures how the embedded store is opened.
type Config struct {
	Path string // filesystem path, or a "file:" DSN (e.g. in-memory tests)
}

// Open creates (or reopens) the embedded store, applying WAL mode and the
// additive schema migration.
func Open(cfg Config, log zerolog.Logger) (*Store, error) {
	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve store path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		path = abs
	}

	dsn := buildDSN(path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	conn.SetMaxOpenConns(1) // single-writer embedded file; serialize through one connection
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{conn: conn, path: path, log: log}
	if err := s.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func buildDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	dsn := path
	dsn += "?_pragma=journal_mode(WAL)"
	dsn += "&_pragma=synchronous(NORMAL)"
	dsn += "&_pragma=foreign_keys(1)"
	dsn += "&_pragma=busy_timeout(5000)"
	return dsn
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn exposes the raw *sql.DB escape hatch for subsystems that need
// ad-hoc aggregate queries.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// Path returns the store's filesystem path (or DSN, for in-memory stores).
func (s *Store) Path() string {
	return s.path
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (s *Store) WithTransaction(fn func(*sql.Tx) error) (err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
			return
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

// Migrate applies the baseline schema, then additively widens every table
// to match the desired column set: existing tables are inspected via
// PRAGMA table_info and any missing column is added with ALTER TABLE ADD
// COLUMN. Columns are never dropped. Safe to call on every startup.
func (s *Store) Migrate() error {
	if _, err := s.conn.Exec(baselineSchema); err != nil {
		return fmt.Errorf("apply baseline schema: %w", err)
	}
	for table, cols := range desiredColumns {
		if err := s.widenTable(table, cols); err != nil {
			return fmt.Errorf("widen table %s: %w", table, err)
		}
	}
	return nil
}

type columnDef struct {
	name    string
	sqlType string
	def     string
}

// desiredColumns lists columns that may be missing on a database created by
// an older baseline schema. The baseline above already includes all of
// them; this map exists so future additive fields have a single place to
// register without ever needing a destructive migration.
var desiredColumns = map[string][]columnDef{}

func (s *Store) widenTable(table string, desired []columnDef) error {
	if len(desired) == 0 {
		return nil
	}
	rows, err := s.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	rows.Close()

	for _, col := range desired {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NOT NULL DEFAULT %s", table, col.name, col.sqlType, col.def)
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
