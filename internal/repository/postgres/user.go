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

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and their initial roles in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for _, role := range u.Roles {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			u.ID, string(role),
		)
		if err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID, including their roles.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone,
		       refresh_token_hash, refresh_token_expires_at, created_at, updated_at
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address, including their roles.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone,
		       refresh_token_hash, refresh_token_expires_at, created_at, updated_at
		FROM users
		WHERE email = $1`

	return r.scanUser(ctx, query, email)
}

// AssignRole grants the role to the user. The insert is idempotent: granting
// a role the user already holds affects no rows and returns nil.
func (r *UserRepository) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// UpdateRefreshToken overwrites the stored refresh token digest and expiry.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, userID string, digest *string, expiresAt *time.Time) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $1, refresh_token_expires_at = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, digest, expiresAt, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.RefreshTokenHash,
		&u.RefreshTokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	roles, err := r.loadRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles

	return &u, nil
}

func (r *UserRepository) loadRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		roles = append(roles, domain.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return roles, nil
}
