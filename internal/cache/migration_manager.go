package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"
)

// MigrationManager brings a cache database forward to the current schema.
// Migrations are forward-only and additive: columns are never dropped or
// renamed, and columns it does not know about are left alone.
type MigrationManager struct {
	db *DB
}

// Migration represents a single migration operation. Up must be idempotent:
// stores created before the migration ledger existed replay every step.
type Migration struct {
	Version     int
	Name        string
	Description string
	Up          func(tx *Tx) error
}

// NewMigrationManager creates a migration manager for db
func NewMigrationManager(db *DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// Migrations returns all available migrations in order
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "initialize_works",
			Description: "Create the works table",
			Up:          migrateWorksV1,
		},
		{
			Version:     2,
			Name:        "initialize_sdg_results",
			Description: "Create the sdg_results table and model index",
			Up:          migrateSDGResultsV1,
		},
		{
			Version:     3,
			Name:        "works_institution_affiliations",
			Description: "Add institution_affiliations_json column to works",
			Up:          migrateWorksInstitutionAffiliations,
		},
	}
}

// LatestVersion is the schema version a fully migrated store reports
func LatestVersion() int {
	return lo.MaxBy(Migrations(), func(a, b Migration) bool { return a.Version > b.Version }).Version
}

// RunMigrations executes all pending migrations and returns the resulting
// schema version. Pending steps and their ledger rows commit together, or
// not at all.
func (m *MigrationManager) RunMigrations() (int, error) {
	if err := m.initMigrationTracking(); err != nil {
		return 0, fmt.Errorf("failed to initialize migration tracking: %w", err)
	}

	currentVersion, err := m.CurrentVersion()
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	pendingMigrations := lo.Filter(Migrations(), func(migration Migration, _ int) bool {
		return migration.Version > currentVersion
	})

	if len(pendingMigrations) == 0 {
		logger.Debugf("No migrations to run (current version: %d)", currentVersion)
		return currentVersion, nil
	}

	logger.Infof("Running %d migrations on %s (from version %d)", len(pendingMigrations), m.db.Path(), currentVersion)

	tx, err := m.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, migration := range pendingMigrations {
		logger.Infof("Executing migration %d: %s", migration.Version, migration.Name)

		if err := migration.Up(tx); err != nil {
			return 0, fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name, description, executed_at)
			VALUES (?, ?, ?, ?)`,
			migration.Version, migration.Name, migration.Description, time.Now().Unix())
		if err != nil {
			return 0, fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migrations: %w", err)
	}

	version := pendingMigrations[len(pendingMigrations)-1].Version
	logger.Infof("Successfully completed %d migrations (now at version %d)", len(pendingMigrations), version)
	return version, nil
}

// initMigrationTracking creates the migration tracking table
func (m *MigrationManager) initMigrationTracking() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		executed_at INTEGER NOT NULL
	);
	`

	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	return nil
}

// CurrentVersion gets the current schema version
func (m *MigrationManager) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func migrateWorksV1(tx *Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS works (
		openalex_id TEXT PRIMARY KEY,
		title TEXT,
		publication_date TEXT,
		doi TEXT,
		type TEXT,
		language TEXT,
		is_oa INTEGER, -- 1, 0 or NULL when unknown
		oa_status TEXT,
		authors TEXT, -- JSON array
		institutions TEXT, -- JSON array
		abstract TEXT,
		raw_json TEXT,
		updated_at TEXT -- UTC, 2006-01-02T15:04:05
	);
	`

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("failed to create works table: %w", err)
	}
	return nil
}

func migrateSDGResultsV1(tx *Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sdg_results (
		openalex_id TEXT NOT NULL,
		model TEXT NOT NULL,
		sdg_response TEXT,
		sdg_formatted TEXT,
		sdg_note TEXT,
		classified_at TEXT,
		PRIMARY KEY (openalex_id, model)
	);

	CREATE INDEX IF NOT EXISTS idx_sdg_results_model ON sdg_results(model);
	`

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sdg_results table: %w", err)
	}
	return nil
}

func migrateWorksInstitutionAffiliations(tx *Tx) error {
	return addColumnIfNotExists(tx, "works", "institution_affiliations_json", "TEXT")
}

// addColumnIfNotExists adds a nullable column to a table if it doesn't already exist
func addColumnIfNotExists(tx *Tx, tableName, columnName, columnDef string) error {
	columns, err := tableColumns(tx, tableName)
	if err != nil {
		return err
	}
	if lo.Contains(columns, columnName) {
		return nil
	}

	alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, columnName, columnDef)
	if _, err := tx.Exec(alterSQL); err != nil {
		return fmt.Errorf("failed to add column %s to %s: %w", columnName, tableName, err)
	}
	logger.Infof("Added column %s to %s", columnName, tableName)
	return nil
}

func tableColumns(tx *Tx, tableName string) ([]string, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to get table info for %s: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info for %s: %w", tableName, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
