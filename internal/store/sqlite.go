package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frontdeskai/frontdesk/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS leads (
		lead_id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_client_created ON leads(client_id, created_at);

	CREATE TABLE IF NOT EXISTS dispatch_failures (
		lead_id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		cause TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dispatch_failures_created ON dispatch_failures(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveLead archives a completed lead record.
func (s *SQLiteStore) SaveLead(ctx context.Context, lead *domain.LeadRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fieldsJSON, err := json.Marshal(lead.Fields)
	if err != nil {
		return fmt.Errorf("marshal lead fields: %w", err)
	}

	query := `
	INSERT INTO leads (lead_id, client_id, fields_json, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(lead_id) DO NOTHING`

	err = execWithRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			lead.LeadID, lead.ClientID, string(fieldsJSON), lead.CreatedAt.Unix(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// RecentLeads returns the newest archived leads for a client.
func (s *SQLiteStore) RecentLeads(ctx context.Context, clientID string, limit int) ([]*domain.LeadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT lead_id, client_id, fields_json, created_at
		FROM leads WHERE client_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent leads: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recent leads rows", "error", closeErr)
		}
	}()

	return scanLeads(rows)
}

// RecordDispatchFailure stores a permanently failed notification exactly
// once per lead.
func (s *SQLiteStore) RecordDispatchFailure(ctx context.Context, lead *domain.LeadRecord, cause string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fieldsJSON, err := json.Marshal(lead.Fields)
	if err != nil {
		return fmt.Errorf("marshal lead fields: %w", err)
	}

	query := `
	INSERT INTO dispatch_failures (lead_id, client_id, fields_json, cause, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(lead_id) DO NOTHING`

	err = execWithRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			lead.LeadID, lead.ClientID, string(fieldsJSON), cause, time.Now().Unix(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert dispatch failure: %w", err)
	}
	return nil
}

// UnresolvedDispatchFailures returns leads whose notification never went out.
func (s *SQLiteStore) UnresolvedDispatchFailures(ctx context.Context, limit int) ([]*domain.LeadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT lead_id, client_id, fields_json, created_at
		FROM dispatch_failures
		ORDER BY created_at ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch failures: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close dispatch failure rows", "error", closeErr)
		}
	}()

	return scanLeads(rows)
}

func scanLeads(rows *sql.Rows) ([]*domain.LeadRecord, error) {
	var leads []*domain.LeadRecord
	for rows.Next() {
		var lead domain.LeadRecord
		var fieldsJSON string
		var createdAt int64

		if err := rows.Scan(&lead.LeadID, &lead.ClientID, &fieldsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &lead.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal lead fields: %w", err)
		}
		lead.CreatedAt = time.Unix(createdAt, 0)
		leads = append(leads, &lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead rows: %w", err)
	}
	return leads, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
