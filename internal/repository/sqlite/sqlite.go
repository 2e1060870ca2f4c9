// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. Queries go through sqlx for struct scanning and IN-list
// expansion; the schema is versioned with golang-migrate from SQL files
// embedded in the binary.
//
// CONNECTION PRAGMAS:
// database/sql keeps a pool of connections, and SQLite pragmas such as
// foreign_keys are per connection. They are therefore passed in the DSN so
// that every pooled connection gets them, not only the first one.
//
// WRITE TRANSACTIONS:
// Every write transaction in this package opens with a write statement. A
// transaction that reads first and writes later can fail with SQLITE_BUSY
// when another writer commits in between; starting with the write makes the
// busy timeout apply instead.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dsnPragmas are applied to every connection the pool opens.
var dsnPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// DB wraps the connection pool and hands out per-aggregate repositories.
type DB struct {
	conn *sql.DB
	x    *sqlx.DB
}

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema version.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the file is reachable now rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := wrap(conn)

	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// wrap builds a DB around an existing pool without migrating. Tests use it
// with go-sqlmock.
func wrap(conn *sql.DB) *DB {
	// sqlx picks its placeholder style from the driver name; "sqlite3" maps
	// to '?' which is what modernc expects.
	return &DB{conn: conn, x: sqlx.NewDb(conn, "sqlite3")}
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(dsnPragmas, "&")
}

// Migrate applies all pending up migrations. Running it on an up-to-date
// database is a no-op.
func (db *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: preparing migrate driver: %w", err)
	}

	// m.Close() is not called: it would close the driver and with it the
	// shared *sql.DB pool.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the user and gesture repository.
func (db *DB) Users() *UserDB { return &UserDB{db: db} }

// Catalog returns the catalog template repository.
func (db *DB) Catalog() *CatalogDB { return &CatalogDB{db: db} }

// Workouts returns the created/saved workout and checklist repository.
func (db *DB) Workouts() *WorkoutDB { return &WorkoutDB{db: db} }

// Payments returns the payment (entitlement record) repository.
func (db *DB) Payments() *PaymentDB { return &PaymentDB{db: db} }

// Reminders returns the reminder repository.
func (db *DB) Reminders() *ReminderDB { return &ReminderDB{db: db} }

// Revocations returns the persisted token revocation store.
func (db *DB) Revocations() *RevocationDB { return &RevocationDB{db: db} }

// withTx runs fn in a transaction. The transaction commits only when fn
// returns nil; any error, panic or cancelled ctx rolls everything back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit returns sql.ErrTxDone and is ignored.
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// containsPattern builds a case-insensitive substring pattern for
// `lower(col) LIKE ? ESCAPE '\'`.
func containsPattern(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}
