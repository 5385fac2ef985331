package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/ports"
)

type concernRepository struct {
	db *sql.DB
}

func NewConcernRepository(db *sql.DB) ports.ConcernRepository {
	return &concernRepository{db: db}
}

func (r *concernRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM concerns WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check concern: %w", err)
	}
	return true, nil
}
