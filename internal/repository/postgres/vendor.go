package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

// VendorProfileRepository implements repository.VendorProfileRepository
// using PostgreSQL.
type VendorProfileRepository struct {
	db DB
}

// NewVendorProfileRepository creates a new PostgreSQL-backed vendor profile
// repository.
func NewVendorProfileRepository(db DB) *VendorProfileRepository {
	return &VendorProfileRepository{db: db}
}

// Create inserts a new vendor profile.
func (r *VendorProfileRepository) Create(ctx context.Context, p *domain.VendorProfile) error {
	query := `
		INSERT INTO vendor_profiles (id, user_id, store_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.StoreName, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("vendor profile", "user_id", p.UserID)
		}
		return fmt.Errorf("insert vendor profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile belonging to the given user.
func (r *VendorProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	query := `
		SELECT id, user_id, store_name, created_at, updated_at
		FROM vendor_profiles
		WHERE user_id = $1`

	var p domain.VendorProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.StoreName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("vendor profile", userID)
		}
		return nil, fmt.Errorf("query vendor profile: %w", err)
	}

	return &p, nil
}

// Update modifies an existing vendor profile.
func (r *VendorProfileRepository) Update(ctx context.Context, p *domain.VendorProfile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE vendor_profiles
		SET store_name = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, p.StoreName, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update vendor profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor profile", p.ID)
	}

	return nil
}
