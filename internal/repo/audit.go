package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one row of the board audit trail.
type AuditEntry struct {
	BoardID      uuid.UUID
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *string
	Metadata     map[string]interface{}
}

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// LogAction appends an entry. board_id is not a foreign key so entries
// outlive deleted boards.
func (r *AuditRepo) LogAction(ctx context.Context, e AuditEntry) error {
	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (board_id, actor_id, action, resource_type, resource_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.BoardID, e.ActorID, e.Action, e.ResourceType, e.ResourceID, metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}
