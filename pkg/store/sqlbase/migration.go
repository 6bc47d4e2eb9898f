// Package sqlbase provides shared schema migration plumbing for SQL backed
// stores.
package sqlbase

import (
	"database/sql"
	"fmt"
	"sort"
)

// MigrationManager applies versioned schema migrations exactly once, tracked
// in a schema_migrations table.
type MigrationManager struct {
	db         *sql.DB
	migrations map[int]string
}

func NewMigrationManager(db *sql.DB, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		migrations: migrations,
	}
}

func (m *MigrationManager) Run() error {
	err := m.createMigrationsTable()
	if err != nil {
		return err
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return err
	}

	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	sort.Ints(versions)

	for _, version := range versions {
		if applied[version] {
			continue
		}

		err = m.apply(version, m.migrations[version])
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *MigrationManager) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

func (m *MigrationManager) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)

	for rows.Next() {
		var version int

		err = rows.Scan(&version)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		applied[version] = true
	}

	return applied, rows.Err()
}

func (m *MigrationManager) apply(version int, statement string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}

	_, err = tx.Exec(statement)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to apply migration %d: %w", version, err)
	}

	_, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	return nil
}
