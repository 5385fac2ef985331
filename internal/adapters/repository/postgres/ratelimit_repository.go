package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type rateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(db *sql.DB) ports.RateLimiter {
	return &rateLimitRepository{
		db: db,
	}
}

// Allow runs every check in one transaction. Each counter row is locked
// before the read-modify-write, so concurrent callers on the same key
// serialize; a failed check rolls the whole transaction back and no
// counter moves.
func (r *rateLimitRepository) Allow(ctx context.Context, checks ...ports.RateLimitCheck) error {
	if len(checks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, check := range checks {
		if err := applyCheck(ctx, tx, check, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rate limit transaction: %w", err)
	}
	return nil
}

func applyCheck(ctx context.Context, tx *sql.Tx, check ports.RateLimitCheck, now time.Time) error {
	// Seed the row first so the FOR UPDATE below always has something
	// to lock; without it two first-time callers could both read
	// "absent" and lose an increment.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rate_limits (key, count, since)
		VALUES ($1, 0, $2)
		ON CONFLICT (key) DO NOTHING
	`, check.Key, now)
	if err != nil {
		return fmt.Errorf("failed to seed rate limit %q: %w", check.Key, err)
	}

	var (
		count int
		since time.Time
	)
	err = tx.QueryRowContext(ctx, `SELECT count, since FROM rate_limits WHERE key = $1 FOR UPDATE`, check.Key).Scan(&count, &since)
	if err != nil {
		return fmt.Errorf("failed to read rate limit %q: %w", check.Key, err)
	}

	if since.Before(now.Add(-check.Window)) {
		count, since = 0, now
	}
	if count >= check.Limit {
		return domain.ErrRateLimited
	}

	_, err = tx.ExecContext(ctx, `UPDATE rate_limits SET count = $2, since = $3 WHERE key = $1`, check.Key, count+1, since)
	if err != nil {
		return fmt.Errorf("failed to update rate limit %q: %w", check.Key, err)
	}
	return nil
}
