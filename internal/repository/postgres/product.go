package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/repository"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
	"github.com/jihadsmadi/kindearth-backend/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, slug, description, category_id, vendor_id, base_price, currency, created_at, updated_at`

// Create inserts a product together with its stocks, images, and tag links
// in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO products (id, name, slug, description, category_id, vendor_id, base_price, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.CategoryID, p.VendorID,
		p.BasePrice, p.Currency, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	for _, tag := range p.Tags {
		_, err = tx.Exec(ctx,
			`INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, tag.ID,
		)
		if err != nil {
			return fmt.Errorf("insert product tag: %w", err)
		}
	}

	for _, s := range p.Stocks {
		_, err = tx.Exec(ctx,
			`INSERT INTO product_stocks (id, product_id, size, color, quantity, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, p.ID, s.Size, s.Color, s.Quantity, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product stock: %w", err)
		}
	}

	for _, img := range p.Images {
		_, err = tx.Exec(ctx,
			`INSERT INTO product_images (id, product_id, url, alt_text, sort_order, is_primary, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			img.ID, p.ID, img.URL, img.AltText, img.SortOrder, img.IsPrimary, img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a product with its tags, stocks, and images.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.VendorID,
		&p.BasePrice, &p.Currency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("query product: %w", err)
	}

	if p.Tags, err = r.loadTags(ctx, id); err != nil {
		return nil, err
	}
	if p.Stocks, err = r.loadStocks(ctx, id); err != nil {
		return nil, err
	}
	if p.Images, err = r.loadImages(ctx, id); err != nil {
		return nil, err
	}

	return &p, nil
}

// List returns a page of products matching the filter plus the total count.
// Listed products carry only their core fields; tags, stocks, and images are
// loaded on single-product reads.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter, page pagination.Params) ([]domain.Product, int, error) {
	var (
		conds []string
		args  []any
	)

	addCond := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.CategoryID != "" {
		addCond("p.category_id = $%d", filter.CategoryID)
	}
	if filter.VendorID != "" {
		addCond("p.vendor_id = $%d", filter.VendorID)
	}
	if filter.TagID != "" {
		addCond("EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = p.id AND pt.tag_id = $%d)", filter.TagID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT p.id, p.name, p.slug, p.description, p.category_id, p.vendor_id, p.base_price, p.currency, p.created_at, p.updated_at
		 FROM products p%s
		 ORDER BY p.created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, page.PerPage, page.Offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.VendorID,
			&p.BasePrice, &p.Currency, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

// Update modifies the product's core fields.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, category_id = $4, base_price = $5, currency = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.db.Exec(ctx, query,
		p.Name, p.Slug, p.Description, p.CategoryID, p.BasePrice, p.Currency, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product. Dependent stock, image, and tag rows are removed
// by ON DELETE CASCADE.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// ReplaceTags replaces the product's tag links with the given tag IDs.
func (r *ProductRepository) ReplaceTags(ctx context.Context, productID string, tagIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM product_tags WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear product tags: %w", err)
	}

	for _, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			productID, tagID,
		)
		if err != nil {
			return fmt.Errorf("insert product tag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// UpsertStock inserts or updates the stock row for one size/color combination.
func (r *ProductRepository) UpsertStock(ctx context.Context, s *domain.ProductStock) error {
	query := `
		INSERT INTO product_stocks (id, product_id, size, color, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id, size, color)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.ProductID, s.Size, s.Color, s.Quantity, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product stock: %w", err)
	}

	return nil
}

// AddImage attaches an image to the product.
func (r *ProductRepository) AddImage(ctx context.Context, img *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, sort_order, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		img.ID, img.ProductID, img.URL, img.AltText, img.SortOrder, img.IsPrimary, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}

	return nil
}

func (r *ProductRepository) loadTags(ctx context.Context, productID string) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.name, t.created_at
		 FROM tags t
		 JOIN product_tags pt ON pt.tag_id = t.id
		 WHERE pt.product_id = $1
		 ORDER BY t.name`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("query product tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *ProductRepository) loadStocks(ctx context.Context, productID string) ([]domain.ProductStock, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, product_id, size, color, quantity, created_at, updated_at
		 FROM product_stocks
		 WHERE product_id = $1
		 ORDER BY size, color`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("query product stocks: %w", err)
	}
	defer rows.Close()

	var stocks []domain.ProductStock
	for rows.Next() {
		var s domain.ProductStock
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Size, &s.Color, &s.Quantity, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

func (r *ProductRepository) loadImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, product_id, url, alt_text, sort_order, is_primary, created_at
		 FROM product_images
		 WHERE product_id = $1
		 ORDER BY sort_order`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("query product images: %w", err)
	}
	defer rows.Close()

	var images []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.SortOrder, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
