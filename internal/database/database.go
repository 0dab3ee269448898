// Package database records generated dungeon rooms in SQLite or PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/cloudquest/internal/config"
)

// Database wraps the SQL connection and provides history operations.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open connects using the configured driver and runs migrations.
func Open(cfg config.DatabaseConfig) (*Database, error) {
	return open(cfg, true)
}

// OpenWithoutMigrations connects and pings but never creates or alters
// tables. Dry runs use it to leave the target schema untouched.
func OpenWithoutMigrations(cfg config.DatabaseConfig) (*Database, error) {
	return open(cfg, false)
}

func open(cfg config.DatabaseConfig, migrate bool) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialect.(*PostgresDialect); ok {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeSeconds) * time.Second)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if !migrate {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		return d, nil
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks the connection is alive.
func (d *Database) Ping() error {
	return d.db.Ping()
}

// migrate creates the schema if it doesn't exist.
func (d *Database) migrate() error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS dungeon_generations (
			id TEXT PRIMARY KEY,
			player_level INTEGER NOT NULL,
			skill_score %[1]s NOT NULL,
			dungeon_type TEXT NOT NULL,
			layout TEXT NOT NULL,
			enemy_count INTEGER NOT NULL,
			loot_chests INTEGER NOT NULL,
			difficulty %[1]s NOT NULL,
			description TEXT NOT NULL,
			payload TEXT NOT NULL,
			client_ip TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`, d.dialect.FloatType()),

		`CREATE INDEX IF NOT EXISTS idx_dungeon_generations_created_at ON dungeon_generations(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}
