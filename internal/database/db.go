package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Options carries the connection settings read from config.
type Options struct {
	Driver       string // mysql or sqlite
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	Path         string // sqlite file path
	MaxOpenConns int
}

// DB bundles the pool with the dialect it speaks.  Repositories take a
// *DB so they can render dialect-specific SQL.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured store and verifies the connection.
func Open(opts Options) (*DB, error) {
	switch opts.Driver {
	case "", DriverMySQL:
		return OpenMySQL(opts.User, opts.Pass, opts.Host, opts.Port, opts.Name, opts.MaxOpenConns)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string, maxOpen int) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATE/DATETIME -> time.Time | loc=UTC keeps times consistent
	// multiStatements lets a migration file carry several statements
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: MySQL}, nil
}

// OpenSQLite opens a file-backed SQLite database.  SQLite has a single
// writer and no row locks, so the pool is pinned to one connection:
// transactions then run strictly one after another.
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: SQLite}, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
