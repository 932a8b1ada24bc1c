// Package storage implements the per-account local sync database: a sqlite
// cache of balances and transfers last seen on the node, so lookups keep
// working while the node is unreachable.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"freeswap/internal/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SyncDB is an open per-account sync database.
type SyncDB struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the sync database at path and applies
// pending schema migrations.
func Open(path string) (*SyncDB, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SyncDB{db: db}, nil
}

func applyMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (s *SyncDB) Close() error {
	return s.db.Close()
}

// UpsertBalance records the node's latest view of an address balance.
func (s *SyncDB) UpsertBalance(ctx context.Context, address, tokenID string, available, total int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (address, token_id, available, total, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address, token_id) DO UPDATE SET
			available = excluded.available,
			total     = excluded.total,
			synced_at = excluded.synced_at`,
		address, tokenID, available, total, time.Now().UTC())
	return err
}

// Balance returns the cached available amount and its sync time. found is
// false when the address/token pair has never been synced.
func (s *SyncDB) Balance(ctx context.Context, address, tokenID string) (available int64, syncedAt time.Time, found bool, err error) {
	row := s.db.QueryRowxContext(ctx,
		`SELECT available, synced_at FROM balances WHERE address = ? AND token_id = ?`,
		address, tokenID)
	if err = row.Scan(&available, &syncedAt); err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, err
	}
	return available, syncedAt, true, nil
}

// RecordTransfers upserts observed transfers for an address.
func (s *SyncDB) RecordTransfers(ctx context.Context, address string, transfers []ledger.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range transfers {
		if t.ID == "" {
			continue
		}
		incoming := 0
		if t.Incoming {
			incoming = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transfers (tx_id, address, token_id, amount, incoming, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (tx_id) DO UPDATE SET
				amount    = excluded.amount,
				timestamp = excluded.timestamp`,
			t.ID, address, t.TokenID, t.Amount, incoming, t.Timestamp); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Transfers lists cached transfers for an address, oldest first.
func (s *SyncDB) Transfers(ctx context.Context, address string, limit int) ([]ledger.Transfer, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT tx_id, token_id, amount, incoming, timestamp
		FROM transfers WHERE address = ?
		ORDER BY timestamp ASC LIMIT ?`, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []ledger.Transfer
	for rows.Next() {
		var t ledger.Transfer
		var incoming int
		if err := rows.Scan(&t.ID, &t.TokenID, &t.Amount, &incoming, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Incoming = incoming != 0
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
