// Package database probes the ulogd sqlite3 database at startup.
//
// The file is opened once to prove it exists and is readable, then closed.
// Nothing is queried after startup.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// ErrDatabaseUnreadable is wrapped when the database file cannot be opened for reading
var ErrDatabaseUnreadable = errors.New("can't open database")

// Info describes what the probe found
type Info struct {
	Path          string
	Size          int64
	SchemaVersion int64 // -1 if the file is readable but not recognised by sqlite
}

// Probe checks that path exists, is a regular file and is readable.
// It then opens it read-only with the sqlite3 driver to read the schema
// version; a file sqlite rejects is only logged, it does not fail the probe.
func Probe(ctx context.Context, path string) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDatabaseUnreadable, path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w %s: is a directory", ErrDatabaseUnreadable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDatabaseUnreadable, path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDatabaseUnreadable, path, err)
	}

	info := &Info{Path: path, Size: st.Size(), SchemaVersion: -1}
	version, err := schemaVersion(ctx, path)
	if err != nil {
		log.Printf("[DB]: Warning: %s is readable but sqlite3 refused it: %v", path, err)
		return info, nil
	}
	info.SchemaVersion = version
	return info, nil
}

// schemaVersion opens path read-only, reads PRAGMA schema_version and closes the handle
func schemaVersion(ctx context.Context, path string) (int64, error) {
	db, err := sql.Open("sqlite3", readOnlyDSN(path))
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping database: %w", err)
	}

	var version int64
	if err := db.QueryRowContext(ctx, "PRAGMA schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func readOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro"
}
