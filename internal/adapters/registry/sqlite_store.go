package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteBinder opens a durable registry database and binds stores per registry address
type SQLiteBinder struct {
	db *sqlx.DB
}

// NewSQLiteBinder opens the database at dsn and runs migrations
func NewSQLiteBinder(dsn string) (*SQLiteBinder, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping registry database: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBinder{db: db}, nil
}

// NewSQLiteBinderFromConfig opens the database configured in RuntimeConfig
func NewSQLiteBinderFromConfig(cfg *config.RuntimeConfig) (*SQLiteBinder, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.RegistryDB), 0755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return NewSQLiteBinder(cfg.RegistryDB)
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (b *SQLiteBinder) Close() error {
	return b.db.Close()
}

// Bind returns the store partition for registry
func (b *SQLiteBinder) Bind(_ context.Context, registry common.Address) (usecase.AddressRegistry, error) {
	return &SQLiteStore{db: b.db, registry: registry.Hex()}, nil
}

// SQLiteStore is the AddressRegistry view of one registry partition
type SQLiteStore struct {
	db       *sqlx.DB
	registry string
}

type entryRow struct {
	Address   sql.NullString `db:"address"`
	BoolValue sql.NullBool   `db:"bool_value"`
}

// SetAddress stores value under key unless the registry is locked
func (s *SQLiteStore) SetAddress(ctx context.Context, key common.Hash, value common.Address) error {
	return s.write(ctx, func(tx *sqlx.Tx, now string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO registry_entries (registry, key, address, bool_value, updated_at)
			VALUES (?, ?, ?, NULL, ?)
			ON CONFLICT(registry, key) DO UPDATE SET address = excluded.address, updated_at = excluded.updated_at`,
			s.registry, key.Hex(), value.Hex(), now)
		return err
	})
}

// SetBool stores value under key unless the registry is locked. Writing true
// to the initialised key locks the registry in the same transaction.
func (s *SQLiteStore) SetBool(ctx context.Context, key common.Hash, value bool) error {
	return s.write(ctx, func(tx *sqlx.Tx, now string) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_entries (registry, key, address, bool_value, updated_at)
			VALUES (?, ?, NULL, ?, ?)
			ON CONFLICT(registry, key) DO UPDATE SET bool_value = excluded.bool_value, updated_at = excluded.updated_at`,
			s.registry, key.Hex(), value, now); err != nil {
			return err
		}
		if key == domain.InitialisedKey() && value {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO registry_locks (registry, locked_at) VALUES (?, ?)`, s.registry, now)
			return err
		}
		return nil
	})
}

// write runs fn in a transaction after checking the lock row
func (s *SQLiteStore) write(ctx context.Context, fn func(tx *sqlx.Tx, now string) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var locked int
	if err := tx.GetContext(ctx, &locked,
		`SELECT COUNT(*) FROM registry_locks WHERE registry = ?`, s.registry); err != nil {
		return fmt.Errorf("read registry lock: %w", err)
	}
	if locked > 0 {
		return domain.ErrWriteAfterLock
	}

	if err := fn(tx, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write registry entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registry transaction: %w", err)
	}
	return nil
}

// GetAddress returns the address stored under key
func (s *SQLiteStore) GetAddress(ctx context.Context, key common.Hash) (common.Address, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row,
		`SELECT address, bool_value FROM registry_entries WHERE registry = ? AND key = ?`, s.registry, key.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, domain.ErrNotFound
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("read registry entry: %w", err)
	}
	if !row.Address.Valid {
		return common.Address{}, domain.ErrNotFound
	}
	return common.HexToAddress(row.Address.String), nil
}

// GetBool returns the flag stored under key, false when absent
func (s *SQLiteStore) GetBool(ctx context.Context, key common.Hash) (bool, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row,
		`SELECT address, bool_value FROM registry_entries WHERE registry = ? AND key = ?`, s.registry, key.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read registry entry: %w", err)
	}
	return row.BoolValue.Valid && row.BoolValue.Bool, nil
}

// Ensure the adapters implement the interfaces
var (
	_ usecase.AddressRegistry = (*SQLiteStore)(nil)
	_ usecase.RegistryBinder  = (*SQLiteBinder)(nil)
)
