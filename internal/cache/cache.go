// Package cache stores generated artifacts in a sqlite database keyed by a
// hash of the kernel input, the emission options and the compiler version,
// so unchanged modules are not compiled again.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/funxc/internal/config"
)

// Artifact kinds
const (
	KindSource = "source"
	KindObject = "object"
)

// schemaVersion is stored in PRAGMA user_version. A database with another
// version is rebuilt: artifacts are derived data.
const schemaVersion = 2

const schema = `CREATE TABLE IF NOT EXISTS artifacts (
	kind    TEXT    NOT NULL,
	key     TEXT    NOT NULL,
	data    BLOB    NOT NULL,
	meta    BLOB,
	created INTEGER NOT NULL,
	PRIMARY KEY (kind, key)
)`

// Artifact is a stored output together with the metadata its producer
// needs to restore the rest of its result.
type Artifact struct {
	Data []byte
	Meta []byte
}

// Cache is an open artifact database.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Cache{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	if version == schemaVersion {
		_, err := db.Exec(schema)
		return err
	}
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS artifacts`,
		schema,
		fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion),
	} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the artifact stored under kind and key.
func (c *Cache) Get(ctx context.Context, kind, key string) (Artifact, bool, error) {
	var a Artifact
	err := c.db.QueryRowContext(ctx,
		`SELECT data, meta FROM artifacts WHERE kind = ? AND key = ?`, kind, key).Scan(&a.Data, &a.Meta)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("reading %s artifact: %w", kind, err)
	}
	return a, true, nil
}

// Put stores a under kind and key, replacing any previous artifact.
func (c *Cache) Put(ctx context.Context, kind, key string, a Artifact) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (kind, key, data, meta, created) VALUES (?, ?, ?, ?, ?)`,
		kind, key, a.Data, a.Meta, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing %s artifact: %w", kind, err)
	}
	return nil
}

// Clean removes every artifact and returns how many were removed.
func (c *Cache) Clean(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM artifacts`)
	if err != nil {
		return 0, fmt.Errorf("cleaning cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleaning cache: %w", err)
	}
	return n, nil
}

// Key derives a deterministic cache key from the kernel input and the
// options that shape the output. The compiler and codegen versions are
// always included so upgrades invalidate old artifacts.
func Key(input []byte, options ...string) string {
	h := sha256.New()
	h.Write([]byte(config.Version))
	h.Write([]byte("\x00"))
	h.Write([]byte(config.CodegenVersion))
	for _, o := range options {
		h.Write([]byte("\x00"))
		h.Write([]byte(o))
	}
	h.Write([]byte("\x00"))
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
