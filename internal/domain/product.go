package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. PrimaryCategoryID is the single category the
// product is chiefly classified under; CategoryIDs is the full membership
// set and always contains the primary category when one is set. Both are
// maintained through the category graph, never written directly.
type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Description       *string         `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"` // 2-decimal scale, non-negative
	PrimaryCategoryID *uuid.UUID      `json:"primary_category_id,omitempty"`
	CategoryIDs       []uuid.UUID     `json:"category_ids"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProductVariant is a sellable variation of a product, keyed by a globally
// unique SKU. The owning product reference is immutable after creation.
type ProductVariant struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"` // positive
	Stock     int             `json:"stock"` // non-negative
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
