package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

// TagRepository implements repository.TagRepository using PostgreSQL.
type TagRepository struct {
	db DB
}

// NewTagRepository creates a new PostgreSQL-backed tag repository.
func NewTagRepository(db DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts a new tag.
func (r *TagRepository) Create(ctx context.Context, t *domain.Tag) error {
	query := `INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, t.ID, t.Name, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("tag", "name", t.Name)
		}
		return fmt.Errorf("insert tag: %w", err)
	}

	return nil
}

// GetByID retrieves a tag by its ID.
func (r *TagRepository) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	var t domain.Tag
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tag", id)
		}
		return nil, fmt.Errorf("query tag: %w", err)
	}

	return &t, nil
}

// List returns all tags ordered by name.
func (r *TagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// Delete removes a tag by its ID.
func (r *TagRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tag", id)
	}

	return nil
}
