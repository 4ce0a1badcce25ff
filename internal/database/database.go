// Package database provides the data access layer for fact checks and audit logs.
package database

import (
	"context"

	"github.com/factchecker/factcheckit/internal/models"
)

// Store defines the interface for data persistence. Lookups return nil, nil
// when nothing matches.
type Store interface {
	// Fact checks
	SaveFactCheck(ctx context.Context, fc *models.FactCheck) error
	GetFactCheck(ctx context.Context, shortID string) (*models.FactCheck, error)
	GetFactCheckByClaimHash(ctx context.Context, hash string) (*models.FactCheck, error)
	ListFactChecks(ctx context.Context, limit, offset int) ([]*models.FactCheck, error)

	// Audit logs
	LogRequest(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// Lifecycle
	Close() error
	Migrate() error
}
