package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence interface for audit events
type Repository interface {
	Append(ctx context.Context, event Event) error
	FindByEmail(ctx context.Context, email string) ([]Event, error)
}

// RepositoryConfig contains configuration for creating an audit repository
type RepositoryConfig struct {
	// Pool is required for postgres repositories
	Pool *pgxpool.Pool
}

// NewAuditRepository creates an audit repository based on the persistence type
func NewAuditRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(config.Pool), nil
	case "memory", "":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}
