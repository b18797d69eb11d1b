package domain

import (
	"time"
)

// Gender is the audience segment a category targets.
type Gender string

const (
	GenderUnisex Gender = "Unisex"
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderBoys   Gender = "Boys"
	GenderGirls  Gender = "Girls"
)

// ValidGenders returns the set of valid category genders.
func ValidGenders() []Gender {
	return []Gender{GenderUnisex, GenderMen, GenderWomen, GenderBoys, GenderGirls}
}

// ParseGender converts a gender string into a Gender, reporting whether it
// names a known segment.
func ParseGender(s string) (Gender, bool) {
	for _, g := range ValidGenders() {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// Category groups products for one audience segment.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Gender    Gender    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a free-form label attached to products.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product represents a product in the catalog, owned by a vendor.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id"`
	VendorID    string    `json:"vendor_id"`
	BasePrice   int64     `json:"base_price"`
	Currency    string    `json:"currency"`
	Tags        []Tag     `json:"tags,omitempty"`

	Stocks []ProductStock `json:"stocks,omitempty"`
	Images []ProductImage `json:"images,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductStock tracks inventory for one size/color combination of a product.
type ProductStock struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductImage represents an image associated with a product.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	SortOrder int       `json:"sort_order"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}
