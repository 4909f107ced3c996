package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/bussewa/booking-backend/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB is the query surface the repositories depend on. It hides *sqlx.DB
// behind an interface so tests can substitute a sqlmock-backed fake.
type DB interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Ping() error
	Close() error
}

// PostgresDB implements DB over sqlx
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection opens and verifies a PostgreSQL connection pool
func NewConnection(cfg config.DatabaseConfig) (DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sqlx.Connect("postgres", poolerCompatibleURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	// Recycle idle connections well before the pooler would drop them
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// poolerCompatibleURL forces the simple query protocol unless the URL
// already chose one. Transaction-mode poolers such as Supavisor break
// extended-protocol prepared statements across pooled connections, which
// surfaces as "bind message has N result formats but query has M columns";
// the simple protocol sidesteps that.
func poolerCompatibleURL(url string) string {
	if strings.Contains(url, "prefer_simple_protocol") {
		return url
	}

	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return url + separator + "prefer_simple_protocol=true"
}

func (db *PostgresDB) Get(dest interface{}, query string, args ...interface{}) error {
	return db.DB.Get(dest, query, args...)
}

func (db *PostgresDB) Select(dest interface{}, query string, args ...interface{}) error {
	return db.DB.Select(dest, query, args...)
}

func (db *PostgresDB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(query, args...)
}

func (db *PostgresDB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(query, args...)
}

func (db *PostgresDB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(query, args...)
}

func (db *PostgresDB) Ping() error {
	return db.DB.Ping()
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
