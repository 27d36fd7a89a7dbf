package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

const (
	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout     = 5 * time.Second
	connMaxIdleTime = 30 * time.Minute
	connMaxLifetime = time.Hour
)

// DB is the audit database handle.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the SQLite database at cfg.Path, creating its directory
// and file as needed, and pings it before returning.
//
// The pool holds a single connection: SQLite allows one writer, and an
// in-memory database lives only as long as its connection.
// cfg.Enabled is not consulted; callers decide whether to open at all.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	inMemory := cfg.Path == MemoryPath

	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	configurePool(sqlDB, inMemory)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // The ping error is the one worth reporting
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !inMemory {
		// SQLite may defer creating the file until the first write
		if err := os.Chmod(cfg.Path, fileMode); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sqlDB.Close() //nolint:errcheck // The chmod error is the one worth reporting
			return nil, fmt.Errorf("restricting database file mode: %w", err)
		}
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

func configurePool(db *sql.DB, inMemory bool) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	if !inMemory {
		db.SetConnMaxLifetime(connMaxLifetime)
	}
}

// connectionString builds the go-sqlite3 DSN. Pragmas are passed as
// underscore query parameters, see https://github.com/mattn/go-sqlite3#connection-string.
// WAL is skipped for in-memory databases, which have no file to journal.
func connectionString(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*int(time.Second/time.Millisecond)))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode && cfg.Path != MemoryPath {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close closes the pool. It is safe to call on a zero DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the configured database path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to prove the connection works.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
