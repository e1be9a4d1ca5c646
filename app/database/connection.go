package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/lysyi3m/market-comb/app/market"
)

// Dialect captures the few statements that differ between the supported engines.
type Dialect struct {
	Name         string
	InsertIgnore string
}

var (
	SQLite = Dialect{Name: "sqlite", InsertIgnore: "INSERT OR IGNORE"}
	MySQL  = Dialect{Name: "mysql", InsertIgnore: "INSERT IGNORE"}
)

const sqlitePoolSize = 4

type DB struct {
	*sql.DB
	Dialect Dialect
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session groups the repositories bound to one dedicated connection.
type Session struct {
	Sales SalesStore
	Users UserStore
}

// NewSQLite opens a sqlite database. ":memory:" yields a private in-memory database.
func NewSQLite(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// An in-memory database lives only as long as its single connection.
	// File databases run in WAL mode, so readers proceed next to a writer.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(sqlitePoolSize)
		db.SetMaxIdleConns(sqlitePoolSize)
	}
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &DB{DB: db, Dialect: SQLite}, nil
}

func NewMySQL(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &DB{DB: db, Dialect: MySQL}, nil
}

// WithConn runs fn against repositories bound to a single dedicated connection.
// The connection is released on every return path.
func (db *DB) WithConn(ctx context.Context, fn func(s Session) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w: %w", market.ErrStoreUnavailable, err)
	}
	defer conn.Close()

	return fn(Session{
		Sales: NewSalesRepository(conn, db.Dialect),
		Users: NewUserRepository(conn, db.Dialect),
	})
}

func storeError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, market.ErrStoreUnavailable, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
