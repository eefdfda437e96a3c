// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so the
// binary builds without a C toolchain and ":memory:" databases work the
// same way in tests as files do in production.
//
// Every entity has its own store type (UserStore, AppStore, ...) sharing
// one *sql.DB. Get them from the accessor methods on DB:
//
//	db, err := sqlite.New("data/deployhub.db")
//	if err != nil { ... }
//	defer db.Close()
//	plans := db.Plans()
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB owns the connection pool and runs the schema migrations.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas and migrates the schema.
//
// dbPath examples:
//   - "data/deployhub.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// PRAGMAs are per connection, and so is an in-memory database. With a
	// larger pool, a second connection would come up with foreign keys off
	// (no cascades) or, for ":memory:", with an empty schema. Writes are
	// single statements, so one connection is plenty for this workload.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Every ownership edge in
	// the schema is ON DELETE CASCADE, which only works with this on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }
func (db *DB) LinkedRepos() *LinkedRepoStore { return &LinkedRepoStore{conn: db.conn} }
func (db *DB) Apps() *AppStore { return &AppStore{conn: db.conn} }
func (db *DB) Plans() *PlanStore { return &PlanStore{conn: db.conn} }
func (db *DB) AppPlans() *AppPlanStore { return &AppPlanStore{conn: db.conn} }
func (db *DB) DatabasePlans() *DatabasePlanStore { return &DatabasePlanStore{conn: db.conn} }

// migrate creates every table. CREATE ... IF NOT EXISTS makes it safe to
// run on each start.
//
// Ownership chain, each edge ON DELETE CASCADE:
//
//	users ─┬─< linked_repositories ──< apps ──< app_plans >── plans
//	       └─< database_plans >─────────────────────────────── plans
func (db *DB) migrate() error {
	// users: (external_id, provider) is the natural key the directory
	// upserts on.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id  INTEGER NOT NULL,
			provider     TEXT NOT NULL DEFAULT 'github',
			extra_data   TEXT NOT NULL DEFAULT '{}',
			access_token TEXT,
			last_login   DATETIME,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_identity ON users(external_id, provider);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS linked_repositories (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			organizer  INTEGER REFERENCES users(id) ON DELETE CASCADE,
			repository TEXT,
			branches   TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_linked_repositories_organizer ON linked_repositories(organizer);
	`)
	if err != nil {
		return fmt.Errorf("creating linked_repositories table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS apps (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			organizer  INTEGER REFERENCES linked_repositories(id) ON DELETE CASCADE,
			region     TEXT,
			framework  TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_apps_organizer ON apps(organizer);
	`)
	if err != nil {
		return fmt.Errorf("creating apps table: %w", err)
	}

	// Prices are TEXT, not NUMERIC: NUMERIC affinity would turn "0.10"
	// into a REAL.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_type      TEXT NOT NULL,
			storage        INTEGER NOT NULL,
			bandwidth      INTEGER NOT NULL,
			memory         INTEGER NOT NULL,
			cpu            INTEGER NOT NULL,
			monthly_cost   TEXT NOT NULL DEFAULT '0.00',
			price_per_hour TEXT NOT NULL DEFAULT '0.00',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating plans table: %w", err)
	}

	// No UNIQUE(app_id, plan_id): assigning the same plan twice is allowed.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS app_plans (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id     INTEGER NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
			plan_id    INTEGER NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_app_plans_app_id ON app_plans(app_id);
	`)
	if err != nil {
		return fmt.Errorf("creating app_plans table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS database_plans (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			owner         INTEGER REFERENCES users(id) ON DELETE CASCADE,
			database_type TEXT,
			plan_id       INTEGER REFERENCES plans(id) ON DELETE CASCADE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_database_plans_owner ON database_plans(owner);
	`)
	if err != nil {
		return fmt.Errorf("creating database_plans table: %w", err)
	}

	return nil
}

// limitArg turns ListOptions into LIMIT/OFFSET arguments. SQLite treats a
// negative LIMIT as "no limit".
func limitArg(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// checkAffected maps a zero-row UPDATE or DELETE to a not found error.
func checkAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
