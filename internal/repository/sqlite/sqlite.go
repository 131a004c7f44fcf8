// Package sqlite implements the repository interfaces on SQLite through
// database/sql and the pure-Go modernc.org/sqlite driver.
//
// One DB value owns the connection pool. Categories, Websites and Favorites
// are thin views over it so that each can satisfy its own repository
// interface without method-name clashes.
//
// TRANSACTIONS:
// RunInTx stores the *sql.Tx in the context. Every repository method picks
// its querier with db.q(ctx), so calls made with that context join the
// transaction without any extra parameters.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/navigation/internal/repository"
)

// Options tunes the connection pool.
type Options struct {
	// MaxOpenConns defaults to 1. SQLite serialises writers anyway, and an
	// in-memory database exists only on the connection that created it.
	MaxOpenConns int
	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration
}

type DB struct {
	conn *sql.DB
}

var _ repository.TxManager = (*DB)(nil)

// psql builds statements with "?" placeholders, which SQLite understands.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway database.
func New(dbPath string, opts Options) (*DB, error) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	conn, err := sql.Open("sqlite", dsn(dbPath, opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(opts.MaxOpenConns)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. In-memory
	// databases ignore it.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends per-connection pragmas so that every pooled connection gets
// foreign keys and the busy timeout, not just the first one.
func dsn(dbPath string, opts Options) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	params.Add("_time_format", "sqlite")

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + params.Encode()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database answers. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Categories() *Categories { return &Categories{db: db} }
func (db *DB) Websites() *Websites     { return &Websites{db: db} }
func (db *DB) Favorites() *Favorites   { return &Favorites{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// q returns the transaction carried by ctx, or the pool.
func (db *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.conn
}

// RunInTx executes fn inside a transaction. fn's error, or a panic, rolls
// the transaction back. Called again from inside fn, it joins the
// enclosing transaction instead of starting a second one.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// exec runs a squirrel builder and returns the result.
func (db *DB) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return db.q(ctx).ExecContext(ctx, query, args...)
}

// query runs a squirrel select.
func (db *DB) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return db.q(ctx).QueryContext(ctx, query, args...)
}

// queryRow runs a squirrel select expected to return at most one row.
func (db *DB) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return db.q(ctx).QueryRowContext(ctx, query, args...), nil
}

func constraintCode(err error) int {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// now is the timestamp written to created_at/updated_at. UTC keeps the
// stored text sortable.
func now() time.Time {
	return time.Now().UTC()
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			icon       TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order);
	`)
	if err != nil {
		return fmt.Errorf("creating categories table: %w", err)
	}

	// category_id and user_id are nullable: "mine" entries have no
	// category and legacy rows may have no owner.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS websites (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			url         TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon        TEXT NOT NULL DEFAULT '',
			category_id INTEGER REFERENCES categories(id),
			user_id     INTEGER,
			is_public   INTEGER NOT NULL DEFAULT 1,
			clicks      INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_websites_category_id ON websites(category_id);
		CREATE INDEX IF NOT EXISTS idx_websites_user_id ON websites(user_id);
		CREATE INDEX IF NOT EXISTS idx_websites_created_at ON websites(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating websites table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_website_favorites (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL,
			website_id INTEGER NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			UNIQUE (user_id, website_id)
		);
		CREATE INDEX IF NOT EXISTS idx_favorites_website_id ON user_website_favorites(website_id);
	`)
	if err != nil {
		return fmt.Errorf("creating favorites table: %w", err)
	}

	return nil
}
