package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/cache"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/event"
	"github.com/jihadsmadi/kindearth-backend/internal/repository"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
	"github.com/jihadsmadi/kindearth-backend/pkg/pagination"
	"github.com/jihadsmadi/kindearth-backend/pkg/slug"
)

// CatalogService implements category, tag, and product management. Reads go
// through the Redis cache; writes invalidate the affected keys.
type CatalogService struct {
	categories repository.CategoryRepository
	tags       repository.TagRepository
	products   repository.ProductRepository
	cache      *cache.Catalog
	events     *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	products repository.ProductRepository,
	catalogCache *cache.Catalog,
	events *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		tags:       tags,
		products:   products,
		cache:      catalogCache,
		events:     events,
		logger:     logger,
	}
}

// CreateCategory adds a category for one audience segment.
func (s *CatalogService) CreateCategory(ctx context.Context, name, gender string) (*domain.Category, error) {
	g, ok := domain.ParseGender(gender)
	if !ok {
		return nil, apperrors.InvalidInput("unknown gender: " + gender)
	}

	now := nowUTC()
	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Gender:    g,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.CategoriesKey())
	s.logger.InfoContext(ctx, "category created", slog.String("category_id", category.ID))

	return category, nil
}

// GetCategory retrieves a category by ID.
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ListCategories returns all categories, served from cache when possible.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if s.cache.GetJSON(ctx, cache.CategoriesKey(), &cached) {
		return cached, nil
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cache.CategoriesKey(), categories)
	return categories, nil
}

// UpdateCategory renames a category or moves it to another segment.
func (s *CatalogService) UpdateCategory(ctx context.Context, id, name, gender string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		category.Name = strings.TrimSpace(name)
	}
	if gender != "" {
		g, ok := domain.ParseGender(gender)
		if !ok {
			return nil, apperrors.InvalidInput("unknown gender: " + gender)
		}
		category.Gender = g
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.CategoriesKey())
	return category, nil
}

// DeleteCategory removes a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.CategoriesKey())
	return nil
}

// CreateTag adds a product label.
func (s *CatalogService) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	tag := &domain.Tag{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		CreatedAt: nowUTC(),
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.TagsKey())
	return tag, nil
}

// GetTag retrieves a tag by ID.
func (s *CatalogService) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return s.tags.GetByID(ctx, id)
}

// ListTags returns all tags, served from cache when possible.
func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var cached []domain.Tag
	if s.cache.GetJSON(ctx, cache.TagsKey(), &cached) {
		return cached, nil
	}

	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cache.TagsKey(), tags)
	return tags, nil
}

// DeleteTag removes a tag.
func (s *CatalogService) DeleteTag(ctx context.Context, id string) error {
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.TagsKey())
	return nil
}

// CreateProductInput carries the fields needed to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	CategoryID  string
	BasePrice   int64
	Currency    string
	TagIDs      []string
	Stocks      []StockInput
	ImageURLs   []string
}

// StockInput is one size/color inventory line.
type StockInput struct {
	Size     string
	Color    string
	Quantity int
}

// CreateProduct adds a product owned by the calling vendor. Admins may also
// create products; the product is attributed to them as vendor.
func (s *CatalogService) CreateProduct(ctx context.Context, caller *auth.Claims, in CreateProductInput) (*domain.Product, error) {
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("unknown category: " + in.CategoryID)
		}
		return nil, err
	}

	if in.Currency == "" {
		in.Currency = "USD"
	}

	now := nowUTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug.Generate(in.Name),
		Description: in.Description,
		CategoryID:  in.CategoryID,
		VendorID:    caller.UserID(),
		BasePrice:   in.BasePrice,
		Currency:    in.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, tagID := range in.TagIDs {
		tag, err := s.tags.GetByID(ctx, tagID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput("unknown tag: " + tagID)
			}
			return nil, err
		}
		product.Tags = append(product.Tags, *tag)
	}

	for _, st := range in.Stocks {
		product.Stocks = append(product.Stocks, domain.ProductStock{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Size:      st.Size,
			Color:     st.Color,
			Quantity:  st.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for i, url := range in.ImageURLs {
		product.Images = append(product.Images, domain.ProductImage{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			URL:       url,
			SortOrder: i,
			IsPrimary: i == 0,
			CreatedAt: now,
		})
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.events.ProductEvent(ctx, event.TypeProductCreated, product)
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("vendor_id", product.VendorID),
	)

	return product, nil
}

// GetProduct retrieves a product, served from cache when possible.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var cached domain.Product
	if s.cache.GetJSON(ctx, cache.ProductKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cache.ProductKey(id), product)
	return product, nil
}

// ListProducts returns a page of products matching the filter.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, filter, page)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}

	return pagination.NewResult(products, total, page), nil
}

// UpdateProductInput carries the mutable product fields. Nil pointers leave
// the field unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	CategoryID  *string
	BasePrice   *int64
	Currency    *string
}

// UpdateProduct modifies a product. Only the owning vendor or an admin may
// update it.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller *auth.Claims, id string, in UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwner(caller, product); err != nil {
		return nil, err
	}

	if in.Name != nil {
		product.Name = strings.TrimSpace(*in.Name)
		product.Slug = slug.Generate(*in.Name)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput("unknown category: " + *in.CategoryID)
			}
			return nil, err
		}
		product.CategoryID = *in.CategoryID
	}
	if in.BasePrice != nil {
		product.BasePrice = *in.BasePrice
	}
	if in.Currency != nil {
		product.Currency = *in.Currency
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.ProductKey(id))
	s.events.ProductEvent(ctx, event.TypeProductUpdated, product)

	return product, nil
}

// DeleteProduct removes a product. Only the owning vendor or an admin may
// delete it.
func (s *CatalogService) DeleteProduct(ctx context.Context, caller *auth.Claims, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizeOwner(caller, product); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.ProductKey(id))
	s.events.ProductEvent(ctx, event.TypeProductDeleted, product)

	return nil
}

// SetProductTags replaces the product's tags. Only the owning vendor or an
// admin may change them.
func (s *CatalogService) SetProductTags(ctx context.Context, caller *auth.Claims, productID string, tagIDs []string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.authorizeOwner(caller, product); err != nil {
		return err
	}

	for _, tagID := range tagIDs {
		if _, err := s.tags.GetByID(ctx, tagID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.InvalidInput("unknown tag: " + tagID)
			}
			return err
		}
	}

	if err := s.products.ReplaceTags(ctx, productID, tagIDs); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.ProductKey(productID))
	return nil
}

// UpsertStock sets the quantity for one size/color combination. Only the
// owning vendor or an admin may change inventory.
func (s *CatalogService) UpsertStock(ctx context.Context, caller *auth.Claims, productID string, in StockInput) (*domain.ProductStock, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwner(caller, product); err != nil {
		return nil, err
	}

	if in.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}

	now := nowUTC()
	stock := &domain.ProductStock{
		ID:        uuid.New().String(),
		ProductID: productID,
		Size:      in.Size,
		Color:     in.Color,
		Quantity:  in.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.products.UpsertStock(ctx, stock); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.ProductKey(productID))
	return stock, nil
}

// AddImage attaches an image to a product. Only the owning vendor or an
// admin may add images.
func (s *CatalogService) AddImage(ctx context.Context, caller *auth.Claims, productID, url, altText string, sortOrder int, isPrimary bool) (*domain.ProductImage, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwner(caller, product); err != nil {
		return nil, err
	}

	image := &domain.ProductImage{
		ID:        uuid.New().String(),
		ProductID: productID,
		URL:       url,
		AltText:   altText,
		SortOrder: sortOrder,
		IsPrimary: isPrimary,
		CreatedAt: nowUTC(),
	}

	if err := s.products.AddImage(ctx, image); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.ProductKey(productID))
	return image, nil
}

// authorizeOwner allows admins and the product's owning vendor.
func (s *CatalogService) authorizeOwner(caller *auth.Claims, product *domain.Product) error {
	if hasRole(caller.Roles, domain.RoleAdmin) {
		return nil
	}
	if product.VendorID != caller.UserID() {
		return apperrors.Forbidden("you do not own this product")
	}
	return nil
}
