package cache

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout is how long a connection waits on a file lock held by
// another connection before failing.
const DefaultBusyTimeout = 5 * time.Second

// DB wraps sql.DB with mutex synchronization for write operations.
// Every mutation of the cache goes through writeMu; reads never take it.
type DB struct {
	conn    *sql.DB
	orm     *gorm.DB
	path    string
	writeMu sync.Mutex // Protects write operations
}

// NewDB opens (creating if needed) the SQLite file at path with WAL
// journaling and FULL synchronous commits applied to every pooled connection.
func NewDB(path string, busyTimeout time.Duration) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	var journalMode string
	if err := conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		logger.Warnf("SQLite journal mode for %s is %s, expected wal", path, journalMode)
	}

	orm, err := gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open database with GORM: %w", err)
	}

	return &DB{conn: conn, orm: orm, path: path}, nil
}

// dsn builds a modernc.org/sqlite data source name. Pragmas passed this way
// are re-applied on every new connection in the pool.
func dsn(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(FULL)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	return path + "?" + params.Encode()
}

// Path returns the file backing the database
func (db *DB) Path() string {
	return db.path
}

// Exec executes a query with mutex protection for writes
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.conn.Exec(query, args...)
}

// Begin starts a transaction with mutex protection
func (db *DB) Begin() (*Tx, error) {
	db.writeMu.Lock()
	tx, err := db.conn.Begin()
	if err != nil {
		db.writeMu.Unlock()
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// Write runs fn inside a GORM transaction while holding the write lock.
// The transaction is committed before the lock is released, so concurrent
// writers are applied in a single total order and readers never see a
// partially applied write.
func (db *DB) Write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.orm.WithContext(ctx).Transaction(fn)
}

// Read returns a GORM session for lookups (no mutex needed for reads)
func (db *DB) Read(ctx context.Context) *gorm.DB {
	return db.orm.WithContext(ctx)
}

// Query performs read operations (no mutex needed for reads)
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow performs single row reads (no mutex needed for reads)
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Close closes the database connection
func (db *DB) Close() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.conn.Close()
}

// Tx wraps sql.Tx to ensure mutex is released on commit/rollback
type Tx struct {
	tx       *sql.Tx
	db       *DB
	finished bool
}

// Exec executes a query within the transaction
func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(query, args...)
}

// Query performs a query within the transaction
func (t *Tx) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.Query(query, args...)
}

// QueryRow performs a single row query within the transaction
func (t *Tx) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(query, args...)
}

// Commit commits the transaction and releases the write lock
func (t *Tx) Commit() error {
	if t.finished {
		return nil // Already committed or rolled back
	}
	t.finished = true
	defer t.db.writeMu.Unlock()
	return t.tx.Commit()
}

// Rollback rolls back the transaction and releases the write lock
func (t *Tx) Rollback() error {
	if t.finished {
		return nil // Already committed or rolled back
	}
	t.finished = true
	defer t.db.writeMu.Unlock()
	return t.tx.Rollback()
}
