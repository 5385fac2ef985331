package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) ports.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, name, tier, region_country, region_state, region_city, created_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var (
		user    domain.User
		country sql.NullString
		state   sql.NullString
		city    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Tier, &country, &state, &city, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Region = domain.Region{Country: country.String, State: state.String, City: city.String}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	tier := user.Tier
	if tier == "" {
		tier = domain.TierOrder[0]
	}
	query := `
		INSERT INTO users (email, name, tier, region_country, region_state, region_city)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, tier,
		nullIfEmpty(user.Region.Country), nullIfEmpty(user.Region.State), nullIfEmpty(user.Region.City),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Tier = tier
	return nil
}
