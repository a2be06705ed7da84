/*
Package sqlstore provides a SQL-backed ledger.Gateway.

PURPOSE:
  Implements ledger.Gateway on top of sqlx. The same queries run against
  SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq): statements are written
  with '?' placeholders and rebound for the active driver. Only the schema
  differs per dialect (schema.go).

KEY TABLES:
  profit_details:       append-only ledger entries
  pay_profits:          per member-year rows, optimistic version column
  balance_snapshots:    frozen year-end totals
  members:              employees
  beneficiary_contacts: beneficiary personal data, unique by ssn
  beneficiaries:        (badge_number, psn_suffix) slices, unique
  vesting_schedules / vesting_breakpoints: vesting tables

ERROR CLASSIFICATION:
  Driver errors are mapped before they leave the package:
  - sqlite BUSY/LOCKED, postgres 40001/40P01, bad connection -> ledger.ErrTransient
  - unique violation on pay_profits/beneficiaries -> ledger.ErrConcurrentModification
  - unique violation on idempotency_key -> ledger.ErrDuplicateIdempotencyKey
  The unit of work retries the first two.

CONCURRENCY:
  SQLite runs on a single connection and writers are serialized by a
  sync.RWMutex. With PostgreSQL, database-level concurrency control handles
  this instead, and stale pay_profits versions surface as conflicts.

USAGE:
  store, err := sqlstore.NewSQLite(":memory:")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  uow := ledger.NewUnitOfWork(store, ledger.DefaultRetryPolicy, logger)

SEE ALSO:
  - ledger/store.go: Gateway and Tx contracts
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/profit-ledger/ledger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes how to open the database.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
}

// Store implements ledger.Gateway.
type Store struct {
	db     *sqlx.DB
	driver string
	mu     sync.RWMutex
}

// NewSQLite opens a SQLite store at path. Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*Store, error) {
	return Open(Config{Driver: DriverSQLite, DSN: path})
}

// Open connects, applies pool settings and migrates the schema.
func Open(cfg Config) (*Store, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		dsn = withParams(dsn, "_foreign_keys=on&_busy_timeout=5000")
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One connection keeps an in-memory database alive and avoids
		// writer contention inside the process.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := &Store{db: db, driver: cfg.Driver}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func withParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the active driver name.
func (s *Store) Driver() string { return s.driver }

func (s *Store) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) lock(write bool) func() {
	if s.driver != DriverSQLite {
		return func() {}
	}
	if write {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// =============================================================================
// TRANSACTIONS (ledger.Gateway)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.run(ctx, nil, fn)
}

// ReadOnly executes fn within a read-only transaction.
func (s *Store) ReadOnly(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(ledger.Tx) error) error {
	unlock := s.lock(opts == nil)
	defer unlock()

	sqlTx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Reset deletes every row. Used by the demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	unlock := s.lock(true)
	defer unlock()

	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
