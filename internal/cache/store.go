package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
)

// DefaultPath is the cache file used when nothing else is configured
const DefaultPath = "cache.sqlite3"

// Options configures how a Store is opened
type Options struct {
	// Path of the SQLite file; parent directories are created as needed.
	Path        string
	BusyTimeout time.Duration
}

// Store owns the single database handle shared by the work and
// classification caches. It is opened once, migrated once and then lives for
// the rest of the process.
type Store struct {
	db      *DB
	version int

	works           *WorkCache
	classifications *ClassificationCache
}

var (
	storeInstance *Store
	storeErr      error
	storeOnce     sync.Once
	storeMutex    sync.Mutex
	storeOptions  = Options{Path: DefaultPath, BusyTimeout: DefaultBusyTimeout}
)

// OpenStore opens the store described by opts and migrates it to the
// current schema. Any failure is returned as-is; there is no fallback store.
func OpenStore(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}

	db, err := NewDB(opts.Path, opts.BusyTimeout)
	if err != nil {
		return nil, err
	}

	version, err := NewMigrationManager(db).RunMigrations()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", opts.Path, err)
	}

	logger.Infof("Opened cache %s (schema version %d)", opts.Path, version)

	return &Store{
		db:              db,
		version:         version,
		works:           &WorkCache{db: db},
		classifications: &ClassificationCache{db: db},
	}, nil
}

// Configure sets the options used by the first GetStore call. It has no
// effect once the process-wide store has been opened.
func Configure(opts Options) {
	storeMutex.Lock()
	defer storeMutex.Unlock()
	storeOptions = opts
}

// GetStore returns the process-wide store, opening it on first use. An
// initialization failure is remembered and returned to every caller.
func GetStore() (*Store, error) {
	storeMutex.Lock()
	defer storeMutex.Unlock()
	storeOnce.Do(func() {
		storeInstance, storeErr = OpenStore(storeOptions)
	})
	return storeInstance, storeErr
}

// ResetStore closes and forgets the process-wide store (for testing)
func ResetStore() {
	storeMutex.Lock()
	defer storeMutex.Unlock()
	if storeInstance != nil {
		_ = storeInstance.Close()
		storeInstance = nil
	}
	storeErr = nil
	storeOnce = sync.Once{}
}

// Works returns the work record cache backed by this store
func (s *Store) Works() *WorkCache {
	return s.works
}

// Classifications returns the classification result cache backed by this store
func (s *Store) Classifications() *ClassificationCache {
	return s.classifications
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.db.Path()
}

// SchemaVersion returns the highest migration applied when the store was opened
func (s *Store) SchemaVersion() int {
	return s.version
}

// Pragma reads the current value of a SQLite pragma, e.g. "journal_mode"
func (s *Store) Pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read pragma %s: %w", name, err)
	}
	return value, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
