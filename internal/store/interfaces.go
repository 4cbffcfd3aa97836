package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"product-catalog-core/internal/domain"
)

// ListCategoriesParams holds parameters for listing categories.
type ListCategoriesParams struct {
	Limit  int
	Offset int
}

// ListProductsParams holds parameters for offset-based product listing.
type ListProductsParams struct {
	Limit      int
	Offset     int
	CategoryID *uuid.UUID // filter on the full membership set
	SortBy     string     // "name", "price", "created_at", "updated_at"
	SortOrder  string     // "asc" or "desc"
}

// KeysetPosition anchors a keyset query to a fixed point in the
// (created_at DESC, id DESC) total order.
type KeysetPosition struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// KeysetParams holds parameters for a keyset range query. After == nil
// means the first page. Limit includes the probe row the caller uses to
// detect whether a further page exists.
type KeysetParams struct {
	CategoryID *uuid.UUID
	After      *KeysetPosition
	Limit      int
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// MembershipStorer owns the category-product membership rows and the
// primary-category pointer. It is the single source of truth for which
// products belong to which categories.
type MembershipStorer interface {
	AddMembership(ctx context.Context, productID, categoryID uuid.UUID) error
	RemoveMembership(ctx context.Context, productID, categoryID uuid.UUID) error
	ReplaceMemberships(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error
	ListCategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
	ListMemberProductIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error)
	SetPrimaryCategory(ctx context.Context, productID uuid.UUID, categoryID *uuid.UUID) error
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error)
	ListProductsKeyset(ctx context.Context, params KeysetParams) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// VariantStorer defines the database operations for product variants.
type VariantStorer interface {
	CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error)
	GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	ListVariantsKeyset(ctx context.Context, productID uuid.UUID, params KeysetParams) ([]domain.ProductVariant, error)
	UpdateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error)
}

// AttributeStorer defines the database operations for attribute
// definitions and attribute values. Creating a value for an existing
// (owner, attribute) pair must fail with domain.ErrConflict; the
// composite primary key on the value tables makes that atomic under
// concurrent creators.
type AttributeStorer interface {
	CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) (*domain.AttributeDefinition, error)
	GetDefinitionByID(ctx context.Context, id uuid.UUID) (*domain.AttributeDefinition, error)
	ListDefinitions(ctx context.Context) ([]domain.AttributeDefinition, error)

	CreateProductValue(ctx context.Context, value *domain.AttributeValue) error
	UpdateProductValue(ctx context.Context, value *domain.AttributeValue) error
	ListProductValues(ctx context.Context, productID uuid.UUID) ([]domain.AttributeValue, error)

	CreateVariantValue(ctx context.Context, value *domain.AttributeValue) error
	UpdateVariantValue(ctx context.Context, value *domain.AttributeValue) error
	ListVariantValues(ctx context.Context, variantID uuid.UUID) ([]domain.AttributeValue, error)
}
