package repository

import (
	"context"
	"time"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
// Implementations load and store the user's roles together with the record.
type UserRepository interface {
	// Create inserts a new user and their initial roles.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// AssignRole grants the role to the user. Granting a role the user
	// already holds is a no-op.
	AssignRole(ctx context.Context, userID string, role domain.Role) error

	// UpdateRefreshToken overwrites the stored refresh token digest and
	// expiry. Passing nils clears the stored token.
	UpdateRefreshToken(ctx context.Context, userID string, digest *string, expiresAt *time.Time) error
}

// VendorProfileRepository defines the interface for vendor storefront data.
type VendorProfileRepository interface {
	// Create inserts a new vendor profile.
	Create(ctx context.Context, profile *domain.VendorProfile) error

	// GetByUserID retrieves the profile belonging to the given user.
	GetByUserID(ctx context.Context, userID string) (*domain.VendorProfile, error)

	// Update modifies an existing vendor profile.
	Update(ctx context.Context, profile *domain.VendorProfile) error
}

// CategoryRepository defines the interface for category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// TagRepository defines the interface for tag persistence.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetByID(ctx context.Context, id string) (*domain.Tag, error)
	List(ctx context.Context) ([]domain.Tag, error)
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID string
	VendorID   string
	TagID      string
}

// ProductRepository defines the interface for product persistence.
type ProductRepository interface {
	// Create inserts a product together with its stocks, images, and tag
	// links in one transaction.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product with its tags, stocks, and images.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns a page of products matching the filter plus the total
	// match count.
	List(ctx context.Context, filter ProductFilter, page pagination.Params) ([]domain.Product, int, error)

	// Update modifies the product's core fields.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product and its dependent rows.
	Delete(ctx context.Context, id string) error

	// ReplaceTags replaces the product's tag links with the given tag IDs.
	ReplaceTags(ctx context.Context, productID string, tagIDs []string) error

	// UpsertStock inserts or updates the stock row for one size/color
	// combination.
	UpsertStock(ctx context.Context, stock *domain.ProductStock) error

	// AddImage attaches an image to the product.
	AddImage(ctx context.Context, image *domain.ProductImage) error
}
