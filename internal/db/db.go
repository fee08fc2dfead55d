// Package db stores play-by-play extracts in sqlite so they can be queried
// ad hoc and reloaded without re-reading the CSV files.
package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/nflvrs/internal/timeutil"
)

// DefaultPath is where the CLI keeps its database unless told otherwise.
const DefaultPath = "nflvrs.db"

// ErrEmptyUpload is returned by UploadPlays when there is nothing to write.
var ErrEmptyUpload = errors.New("no plays to upload")

// DB wraps a sqlite handle holding the PlayByPlay and Imports tables.
type DB struct {
	*sql.DB
	path string

	// Clock stamps import records.
	Clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA foreign_keys = ON",
}

// NewDB opens the database at path and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the database without touching its schema. The migrate
// subcommand uses it so it can inspect and repair a dirty database.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, path: path, Clock: timeutil.RealClock{}}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }
