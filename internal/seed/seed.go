// Package seed creates the initial admin account and baseline catalog data
// on startup. All operations are idempotent so repeated startups are safe.
package seed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/repository"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

// Seeder populates baseline data.
type Seeder struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	tags       repository.TagRepository
	logger     *slog.Logger
}

// New creates a seeder.
func New(
	users repository.UserRepository,
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{users: users, categories: categories, tags: tags, logger: logger}
}

// Run seeds the admin account (when credentials are configured) and the
// baseline categories and tags.
func (s *Seeder) Run(ctx context.Context, adminEmail, adminPassword string) error {
	if adminEmail != "" && adminPassword != "" {
		if err := s.seedAdmin(ctx, adminEmail, adminPassword); err != nil {
			return err
		}
	}

	if err := s.seedCategories(ctx); err != nil {
		return err
	}

	return s.seedTags(ctx)
}

func (s *Seeder) seedAdmin(ctx context.Context, email, password string) error {
	// Login looks users up by lowercased email, so the stored admin email
	// must be normalized the same way regardless of how it was configured.
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "System",
		LastName:     "Admin",
		Roles:        []domain.Role{domain.RoleAdmin},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	s.logger.Info("admin account seeded", slog.String("email", email))
	return nil
}

func (s *Seeder) seedCategories(ctx context.Context) error {
	defaults := []struct {
		name   string
		gender domain.Gender
	}{
		{"Shoes", domain.GenderMen},
		{"Shoes", domain.GenderWomen},
		{"Shoes", domain.GenderBoys},
		{"Shoes", domain.GenderGirls},
		{"Accessories", domain.GenderUnisex},
	}

	now := time.Now().UTC()
	for _, d := range defaults {
		category := &domain.Category{
			ID:        uuid.New().String(),
			Name:      d.name,
			Gender:    d.gender,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.categories.Create(ctx, category); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				continue
			}
			return err
		}
	}

	return nil
}

func (s *Seeder) seedTags(ctx context.Context) error {
	defaults := []string{"new-arrival", "sale", "bestseller"}

	now := time.Now().UTC()
	for _, name := range defaults {
		tag := &domain.Tag{
			ID:        uuid.New().String(),
			Name:      name,
			CreatedAt: now,
		}
		if err := s.tags.Create(ctx, tag); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				continue
			}
			return err
		}
	}

	return nil
}
