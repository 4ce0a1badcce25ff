package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/factchecker/factcheckit/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS fact_checks (
			id TEXT PRIMARY KEY,
			short_id TEXT UNIQUE NOT NULL,
			claim TEXT NOT NULL,
			claim_hash TEXT NOT NULL,
			verdict TEXT NOT NULL,
			explanation TEXT NOT NULL,
			sources TEXT NOT NULL,
			formatted_response TEXT NOT NULL,
			reference_url TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL,
			flags TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_checks_hash ON fact_checks(claim_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_checks_created ON fact_checks(created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			request_size INTEGER NOT NULL,
			response_code INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			remote_addr TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const factCheckColumns = `id, short_id, claim, claim_hash, verdict, explanation, sources,
	formatted_response, reference_url, format, flags, created_at`

// SaveFactCheck stores a fact check.
func (s *SQLiteStore) SaveFactCheck(ctx context.Context, fc *models.FactCheck) error {
	sourcesJSON, err := json.Marshal(fc.Result.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	flags := fc.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fact_checks (`+factCheckColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fc.ID, fc.ShortID, fc.Claim, fc.ClaimHash, string(fc.Result.Verdict), fc.Result.Explanation,
		string(sourcesJSON), fc.Result.FormattedResponse, fc.ReferenceURL, fc.Format,
		string(flagsJSON), fc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save fact check: %w", err)
	}
	return nil
}

// GetFactCheck retrieves a fact check by its short id.
func (s *SQLiteStore) GetFactCheck(ctx context.Context, shortID string) (*models.FactCheck, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+factCheckColumns+` FROM fact_checks WHERE short_id = ?`, shortID)
	return scanFactCheck(row)
}

// GetFactCheckByClaimHash retrieves the newest fact check of a claim.
func (s *SQLiteStore) GetFactCheckByClaimHash(ctx context.Context, hash string) (*models.FactCheck, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+factCheckColumns+` FROM fact_checks
		WHERE claim_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)
	return scanFactCheck(row)
}

// ListFactChecks returns paginated fact checks, newest first.
func (s *SQLiteStore) ListFactChecks(ctx context.Context, limit, offset int) ([]*models.FactCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+factCheckColumns+` FROM fact_checks
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.FactCheck
	for rows.Next() {
		fc, err := scanFactCheck(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, fc)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFactCheck(row scanner) (*models.FactCheck, error) {
	var fc models.FactCheck
	var verdict, sourcesJSON, flagsJSON string
	err := row.Scan(&fc.ID, &fc.ShortID, &fc.Claim, &fc.ClaimHash, &verdict, &fc.Result.Explanation,
		&sourcesJSON, &fc.Result.FormattedResponse, &fc.ReferenceURL, &fc.Format, &flagsJSON, &fc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fc.Result.Verdict = models.Verdict(verdict)
	if err := json.Unmarshal([]byte(sourcesJSON), &fc.Result.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources of %s: %w", fc.ShortID, err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &fc.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags of %s: %w", fc.ShortID, err)
	}
	return &fc, nil
}

// LogRequest stores an audit log entry.
func (s *SQLiteStore) LogRequest(ctx context.Context, log *models.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, endpoint, method, request_size, response_code, duration_ms, remote_addr, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Endpoint, log.Method, log.RequestSize,
		log.ResponseCode, log.DurationMs, log.RemoteAddr, log.Timestamp)
	return err
}

// GetAuditLogs returns paginated audit logs.
func (s *SQLiteStore) GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, endpoint, method, request_size, response_code, duration_ms, remote_addr, timestamp
		FROM audit_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.Endpoint, &l.Method, &l.RequestSize,
			&l.ResponseCode, &l.DurationMs, &l.RemoteAddr, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
