package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"product-catalog-core/internal/catalog"
	"product-catalog-core/internal/domain"
	"product-catalog-core/internal/store"
)

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context, params store.ListCategoriesParams) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Int(1), args.Error(2)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMembershipStorer is a mock implementation of store.MembershipStorer
type MockMembershipStorer struct {
	mock.Mock
}

func (m *MockMembershipStorer) AddMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	args := m.Called(ctx, productID, categoryID)
	return args.Error(0)
}

func (m *MockMembershipStorer) RemoveMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	args := m.Called(ctx, productID, categoryID)
	return args.Error(0)
}

func (m *MockMembershipStorer) ReplaceMemberships(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Error(0)
}

func (m *MockMembershipStorer) ListCategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, productID)
	var ids []uuid.UUID
	if arg0 := args.Get(0); arg0 != nil {
		ids = arg0.([]uuid.UUID)
	}
	return ids, args.Error(1)
}

func (m *MockMembershipStorer) ListMemberProductIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, categoryID)
	var ids []uuid.UUID
	if arg0 := args.Get(0); arg0 != nil {
		ids = arg0.([]uuid.UUID)
	}
	return ids, args.Error(1)
}

func (m *MockMembershipStorer) SetPrimaryCategory(ctx context.Context, productID uuid.UUID, categoryID *uuid.UUID) error {
	args := m.Called(ctx, productID, categoryID)
	return args.Error(0)
}

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductStorer) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockProductStorer) ListProductsKeyset(ctx context.Context, params store.KeysetParams) ([]domain.Product, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVariantStorer is a mock implementation of store.VariantStorer
type MockVariantStorer struct {
	mock.Mock
}

func (m *MockVariantStorer) CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	args := m.Called(ctx, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductVariant), args.Error(1)
}

func (m *MockVariantStorer) GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductVariant), args.Error(1)
}

func (m *MockVariantStorer) ListVariantsKeyset(ctx context.Context, productID uuid.UUID, params store.KeysetParams) ([]domain.ProductVariant, error) {
	args := m.Called(ctx, productID, params)
	var variants []domain.ProductVariant
	if arg0 := args.Get(0); arg0 != nil {
		variants = arg0.([]domain.ProductVariant)
	}
	return variants, args.Error(1)
}

func (m *MockVariantStorer) UpdateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	args := m.Called(ctx, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductVariant), args.Error(1)
}

// MockAttributeStorer is a mock implementation of store.AttributeStorer
type MockAttributeStorer struct {
	mock.Mock
}

func (m *MockAttributeStorer) CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) (*domain.AttributeDefinition, error) {
	args := m.Called(ctx, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttributeDefinition), args.Error(1)
}

func (m *MockAttributeStorer) GetDefinitionByID(ctx context.Context, id uuid.UUID) (*domain.AttributeDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttributeDefinition), args.Error(1)
}

func (m *MockAttributeStorer) ListDefinitions(ctx context.Context) ([]domain.AttributeDefinition, error) {
	args := m.Called(ctx)
	var defs []domain.AttributeDefinition
	if arg0 := args.Get(0); arg0 != nil {
		defs = arg0.([]domain.AttributeDefinition)
	}
	return defs, args.Error(1)
}

func (m *MockAttributeStorer) CreateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockAttributeStorer) UpdateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockAttributeStorer) ListProductValues(ctx context.Context, productID uuid.UUID) ([]domain.AttributeValue, error) {
	args := m.Called(ctx, productID)
	var values []domain.AttributeValue
	if arg0 := args.Get(0); arg0 != nil {
		values = arg0.([]domain.AttributeValue)
	}
	return values, args.Error(1)
}

func (m *MockAttributeStorer) CreateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockAttributeStorer) UpdateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockAttributeStorer) ListVariantValues(ctx context.Context, variantID uuid.UUID) ([]domain.AttributeValue, error) {
	args := m.Called(ctx, variantID)
	var values []domain.AttributeValue
	if arg0 := args.Get(0); arg0 != nil {
		values = arg0.([]domain.AttributeValue)
	}
	return values, args.Error(1)
}

// mockStores bundles one mock per storer interface.
type mockStores struct {
	categories  *MockCategoryStorer
	memberships *MockMembershipStorer
	products    *MockProductStorer
	variants    *MockVariantStorer
	attrs       *MockAttributeStorer
}

func newMockStores() *mockStores {
	return &mockStores{
		categories:  new(MockCategoryStorer),
		memberships: new(MockMembershipStorer),
		products:    new(MockProductStorer),
		variants:    new(MockVariantStorer),
		attrs:       new(MockAttributeStorer),
	}
}

func (ms *mockStores) assertExpectations(t *testing.T) {
	t.Helper()
	ms.categories.AssertExpectations(t)
	ms.memberships.AssertExpectations(t)
	ms.products.AssertExpectations(t)
	ms.variants.AssertExpectations(t)
	ms.attrs.AssertExpectations(t)
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, ms *mockStores) *httptest.Server {
	t.Helper()
	svc := catalog.NewService(ms.categories, ms.memberships, ms.products, ms.variants, ms.attrs)
	handler := NewHTTPHandler(svc)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return httptest.NewServer(router)
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}
