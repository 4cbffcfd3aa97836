package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product-catalog-core/internal/domain"
	"product-catalog-core/internal/store"
)

const (
	// DefaultPageSize is used when a listing request carries no size.
	DefaultPageSize = 20
	// MaxPageSize caps a single listing request.
	MaxPageSize = 100
)

// CategoryCreateInput carries the fields for creating a category.
type CategoryCreateInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
	SortOrder   *int
}

// CategoryUpdateInput carries the fields for a full category update.
type CategoryUpdateInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
	SortOrder   *int
}

// CategoryPatchInput carries optional fields for a partial category
// update; nil fields are left unchanged.
type CategoryPatchInput struct {
	Description *string
	ParentID    *uuid.UUID
	SortOrder   *int
}

// ProductCreateInput carries the fields for creating a product.
type ProductCreateInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  *uuid.UUID // becomes the primary category when set
}

// ProductUpdateInput carries the fields for a full product update.
type ProductUpdateInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  *uuid.UUID
}

// ProductPatchInput carries optional fields for a partial product
// update; nil fields are left unchanged.
type ProductPatchInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

// VariantCreateInput carries the fields for creating a product variant.
type VariantCreateInput struct {
	SKU   string
	Price decimal.Decimal
	Stock int
}

// VariantUpdateInput carries the fields for a full variant update. The
// owning product reference is immutable and not part of the input.
type VariantUpdateInput struct {
	SKU   string
	Price decimal.Decimal
	Stock int
}

// KeysetPage is one page of a keyset traversal. NextCursor is nil on the
// final page.
type KeysetPage[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
	HasNext    bool    `json:"has_next"`
}

// Page is one page of an offset listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"total_items"`
}

// Service orchestrates product, variant, and attribute-value operations,
// delegating category membership to the CategoryGraph and attribute
// validation to the AttributeCatalog. All errors from those components
// propagate unchanged.
type Service struct {
	categories store.CategoryStorer
	products   store.ProductStorer
	variants   store.VariantStorer
	attrs      store.AttributeStorer
	graph      *CategoryGraph
	attrib     *AttributeCatalog
}

// NewService wires a Service from the store interfaces.
func NewService(categories store.CategoryStorer, memberships store.MembershipStorer, products store.ProductStorer, variants store.VariantStorer, attrs store.AttributeStorer) *Service {
	return &Service{
		categories: categories,
		products:   products,
		variants:   variants,
		attrs:      attrs,
		graph:      NewCategoryGraph(categories, memberships),
		attrib:     NewAttributeCatalog(attrs),
	}
}

// Graph exposes the category graph for category-only edits.
func (s *Service) Graph() *CategoryGraph { return s.graph }

// Attributes exposes the attribute catalog.
func (s *Service) Attributes() *AttributeCatalog { return s.attrib }

// --- Categories ---

// CreateCategory creates a category, validating the parent reference
// when one is given. Duplicate names fail with domain.ErrConflict.
func (s *Service) CreateCategory(ctx context.Context, in CategoryCreateInput) (*domain.Category, error) {
	category := &domain.Category{
		Name:        in.Name,
		Description: in.Description,
		SortOrder:   in.SortOrder,
	}
	if in.ParentID != nil {
		// The category has no id yet, so only existence matters here;
		// cycle checks apply once it can appear in a chain.
		exists, err := s.categories.CategoryExists(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("parent category %s: %w", *in.ParentID, domain.ErrNotFound)
		}
		category.ParentID = in.ParentID
	}
	return s.categories.CreateCategory(ctx, category)
}

// GetCategory resolves a category by id.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.GetCategoryByID(ctx, id)
}

// ListCategories returns an offset page of categories.
func (s *Service) ListCategories(ctx context.Context, page, size int) (*Page[domain.Category], error) {
	page, size = normalizePage(page, size)
	items, total, err := s.categories.ListCategories(ctx, store.ListCategoriesParams{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	return &Page[domain.Category]{Items: items, TotalItems: total}, nil
}

// UpdateCategory replaces a category's mutable fields. Parent changes go
// through the graph's cycle-safe assignment.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryUpdateInput) (*domain.Category, error) {
	category, err := s.categories.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = in.Name
	category.Description = in.Description
	category.SortOrder = in.SortOrder
	if in.ParentID != nil {
		if err := s.graph.SetParent(ctx, category, *in.ParentID); err != nil {
			return nil, err
		}
	} else {
		category.ParentID = nil
	}
	return s.categories.UpdateCategory(ctx, category)
}

// PatchCategory applies a partial update; absent fields keep their value.
func (s *Service) PatchCategory(ctx context.Context, id uuid.UUID, in CategoryPatchInput) (*domain.Category, error) {
	category, err := s.categories.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Description != nil {
		category.Description = in.Description
	}
	if in.SortOrder != nil {
		category.SortOrder = in.SortOrder
	}
	if in.ParentID != nil {
		if err := s.graph.SetParent(ctx, category, *in.ParentID); err != nil {
			return nil, err
		}
	}
	return s.categories.UpdateCategory(ctx, category)
}

// DeleteCategory removes a category. Member products lose the reference
// but are never deleted; the store handles the unlinking.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.DeleteCategory(ctx, id)
}

// --- Category-product membership ---

// AssignPrimaryCategory sets the product's primary category.
func (s *Service) AssignPrimaryCategory(ctx context.Context, productID, categoryID uuid.UUID) (*domain.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.graph.AssignPrimaryCategory(ctx, product, categoryID); err != nil {
		return nil, err
	}
	return product, nil
}

// SetProductCategories replaces the product's full category membership.
func (s *Service) SetProductCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) (*domain.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.graph.SetCategorySet(ctx, product, categoryIDs); err != nil {
		return nil, err
	}
	return product, nil
}

// RemoveProductCategory unlinks the product from one category.
func (s *Service) RemoveProductCategory(ctx context.Context, productID, categoryID uuid.UUID) (*domain.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.graph.RemoveMembership(ctx, product, categoryID); err != nil {
		return nil, err
	}
	return product, nil
}

// --- Products ---

// CreateProduct creates a product and, when a category is given, assigns
// it as the primary category through the graph. The category is resolved
// before the insert so a bad reference never leaves an orphan row behind.
func (s *Service) CreateProduct(ctx context.Context, in ProductCreateInput) (*domain.Product, error) {
	if in.CategoryID != nil {
		if err := s.graph.requireCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	product := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	created, err := s.products.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := s.graph.AssignPrimaryCategory(ctx, created, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// GetProduct resolves a product by id.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.GetProductByID(ctx, id)
}

// FindAll returns an offset page of products, optionally filtered to one
// category's membership set. A filter that does not resolve fails with
// domain.ErrNotFound before any query runs.
func (s *Service) FindAll(ctx context.Context, page, size int, sortBy, sortOrder string, categoryID *uuid.UUID) (*Page[domain.Product], error) {
	page, size = normalizePage(page, size)
	if categoryID != nil {
		if err := s.graph.requireCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
	}
	items, total, err := s.products.ListProducts(ctx, store.ListProductsParams{
		Limit:      size,
		Offset:     (page - 1) * size,
		CategoryID: categoryID,
		SortBy:     sortBy,
		SortOrder:  sortOrder,
	})
	if err != nil {
		return nil, err
	}
	return &Page[domain.Product]{Items: items, TotalItems: total}, nil
}

// ListKeyset returns one page of a cursor-anchored product traversal in
// (created_at DESC, id DESC) order. The page stays correct under
// concurrent inserts because the cursor anchors to a fixed point in the
// total order, not to a row offset.
func (s *Service) ListKeyset(ctx context.Context, categoryID *uuid.UUID, cursor string, pageSize int) (*KeysetPage[domain.Product], error) {
	pageSize = normalizeSize(pageSize)
	if categoryID != nil {
		if err := s.graph.requireCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
	}
	params := store.KeysetParams{CategoryID: categoryID, Limit: pageSize + 1}
	if cursor != "" {
		createdAt, id, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		params.After = &store.KeysetPosition{CreatedAt: createdAt, ID: id}
	}
	rows, err := s.products.ListProductsKeyset(ctx, params)
	if err != nil {
		return nil, err
	}
	return buildKeysetPage(rows, pageSize, func(p domain.Product) (string, error) {
		return EncodeCursor(p.CreatedAt, p.ID)
	})
}

// UpdateProduct replaces a product's mutable fields. As with create, the
// category reference is resolved before any write lands.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductUpdateInput) (*domain.Product, error) {
	if in.CategoryID != nil {
		if err := s.graph.requireCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	updated, err := s.products.UpdateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := s.graph.AssignPrimaryCategory(ctx, updated, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// PatchProduct applies a partial update; absent fields keep their value.
func (s *Service) PatchProduct(ctx context.Context, id uuid.UUID, in ProductPatchInput) (*domain.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	return s.products.UpdateProduct(ctx, product)
}

// DeleteProduct removes a product; its variants and attribute values go
// with it (cascade in the store).
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.DeleteProduct(ctx, id)
}

// --- Variants ---

// CreateVariant creates a variant under the given product.
func (s *Service) CreateVariant(ctx context.Context, productID uuid.UUID, in VariantCreateInput) (*domain.ProductVariant, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	variant := &domain.ProductVariant{
		ProductID: productID,
		SKU:       in.SKU,
		Price:     in.Price,
		Stock:     in.Stock,
	}
	return s.variants.CreateVariant(ctx, variant)
}

// GetVariant resolves a variant by id.
func (s *Service) GetVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	return s.variants.GetVariantByID(ctx, id)
}

// UpdateVariant replaces a variant's mutable fields in place.
func (s *Service) UpdateVariant(ctx context.Context, id uuid.UUID, in VariantUpdateInput) (*domain.ProductVariant, error) {
	variant, err := s.variants.GetVariantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	variant.SKU = in.SKU
	variant.Price = in.Price
	variant.Stock = in.Stock
	return s.variants.UpdateVariant(ctx, variant)
}

// ListVariantsKeyset returns one cursor-anchored page of a product's
// variants, same ordering and anchoring rules as ListKeyset.
func (s *Service) ListVariantsKeyset(ctx context.Context, productID uuid.UUID, cursor string, pageSize int) (*KeysetPage[domain.ProductVariant], error) {
	pageSize = normalizeSize(pageSize)
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	params := store.KeysetParams{Limit: pageSize + 1}
	if cursor != "" {
		createdAt, id, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		params.After = &store.KeysetPosition{CreatedAt: createdAt, ID: id}
	}
	rows, err := s.variants.ListVariantsKeyset(ctx, productID, params)
	if err != nil {
		return nil, err
	}
	return buildKeysetPage(rows, pageSize, func(v domain.ProductVariant) (string, error) {
		return EncodeCursor(v.CreatedAt, v.ID)
	})
}

// --- Attribute values ---

// CreateProductAttribute attaches a typed value to a product. A value
// that already exists for the (product, attribute) pair fails with
// domain.ErrConflict; use UpdateProductAttribute to change it.
func (s *Service) CreateProductAttribute(ctx context.Context, productID uuid.UUID, in AttributeValueInput) (*domain.AttributeValue, error) {
	value, err := s.buildValue(ctx, productID, in, domain.ScopeProduct, s.requireProduct)
	if err != nil {
		return nil, err
	}
	if err := s.attrs.CreateProductValue(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

// UpdateProductAttribute changes the value for an existing (product,
// attribute) pair; an absent pair fails with domain.ErrNotFound.
func (s *Service) UpdateProductAttribute(ctx context.Context, productID, attributeID uuid.UUID, in AttributeValueInput) (*domain.AttributeValue, error) {
	in.AttributeID = attributeID
	value, err := s.buildValue(ctx, productID, in, domain.ScopeProduct, s.requireProduct)
	if err != nil {
		return nil, err
	}
	if err := s.attrs.UpdateProductValue(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

// ListProductAttributes returns every attribute value on the product.
func (s *Service) ListProductAttributes(ctx context.Context, productID uuid.UUID) ([]domain.AttributeValue, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.attrs.ListProductValues(ctx, productID)
}

// CreateVariantAttribute attaches a typed value to a variant, under the
// same pair-uniqueness contract as CreateProductAttribute.
func (s *Service) CreateVariantAttribute(ctx context.Context, variantID uuid.UUID, in AttributeValueInput) (*domain.AttributeValue, error) {
	value, err := s.buildValue(ctx, variantID, in, domain.ScopeVariant, s.requireVariant)
	if err != nil {
		return nil, err
	}
	if err := s.attrs.CreateVariantValue(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

// UpdateVariantAttribute changes the value for an existing (variant,
// attribute) pair.
func (s *Service) UpdateVariantAttribute(ctx context.Context, variantID, attributeID uuid.UUID, in AttributeValueInput) (*domain.AttributeValue, error) {
	in.AttributeID = attributeID
	value, err := s.buildValue(ctx, variantID, in, domain.ScopeVariant, s.requireVariant)
	if err != nil {
		return nil, err
	}
	if err := s.attrs.UpdateVariantValue(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

// ListVariantAttributes returns every attribute value on the variant.
func (s *Service) ListVariantAttributes(ctx context.Context, variantID uuid.UUID) ([]domain.AttributeValue, error) {
	if err := s.requireVariant(ctx, variantID); err != nil {
		return nil, err
	}
	return s.attrs.ListVariantValues(ctx, variantID)
}

// --- helpers ---

func (s *Service) buildValue(ctx context.Context, ownerID uuid.UUID, in AttributeValueInput, target domain.AttributeScope, requireOwner func(context.Context, uuid.UUID) error) (*domain.AttributeValue, error) {
	if err := requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	def, err := s.attrs.GetDefinitionByID(ctx, in.AttributeID)
	if err != nil {
		return nil, err
	}
	if err := s.attrib.ValidateAssignment(def, in, target); err != nil {
		return nil, err
	}
	value, err := s.attrib.BuildTypedValue(def, in)
	if err != nil {
		return nil, err
	}
	value.OwnerID = ownerID
	return value, nil
}

func (s *Service) requireProduct(ctx context.Context, id uuid.UUID) error {
	exists, err := s.products.ProductExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Service) requireVariant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.variants.GetVariantByID(ctx, id); err != nil {
		return err
	}
	return nil
}

// buildKeysetPage truncates a pageSize+1 fetch to pageSize rows and, when
// the extra row was present, encodes the last returned row as the next
// anchor.
func buildKeysetPage[T any](rows []T, pageSize int, encode func(T) (string, error)) (*KeysetPage[T], error) {
	page := &KeysetPage[T]{Items: rows}
	if len(rows) > pageSize {
		page.Items = rows[:pageSize]
		page.HasNext = true
		token, err := encode(page.Items[len(page.Items)-1])
		if err != nil {
			return nil, err
		}
		page.NextCursor = &token
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	return page, normalizeSize(size)
}

func normalizeSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
