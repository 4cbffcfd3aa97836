package catalog

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"product-catalog-core/internal/domain"
	"product-catalog-core/internal/store"
)

type membershipKey struct {
	productID  uuid.UUID
	categoryID uuid.UUID
}

type valueKey struct {
	ownerID     uuid.UUID
	attributeID uuid.UUID
}

// memStore is a stateful in-memory implementation of every storer
// interface. It honors the same error contract as the SQL store
// (domain.ErrNotFound / domain.ErrConflict wrapped with context) and a
// deterministic clock so keyset ordering is reproducible.
type memStore struct {
	mu            sync.Mutex
	now           time.Time
	categories    map[uuid.UUID]*domain.Category
	products      map[uuid.UUID]*domain.Product
	variants      map[uuid.UUID]*domain.ProductVariant
	defs          map[uuid.UUID]*domain.AttributeDefinition
	memberships   map[membershipKey]bool
	productValues map[valueKey]*domain.AttributeValue
	variantValues map[valueKey]*domain.AttributeValue
}

func newMemStore() *memStore {
	return &memStore{
		now:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		categories:    make(map[uuid.UUID]*domain.Category),
		products:      make(map[uuid.UUID]*domain.Product),
		variants:      make(map[uuid.UUID]*domain.ProductVariant),
		defs:          make(map[uuid.UUID]*domain.AttributeDefinition),
		memberships:   make(map[membershipKey]bool),
		productValues: make(map[valueKey]*domain.AttributeValue),
		variantValues: make(map[valueKey]*domain.AttributeValue),
	}
}

// tick advances the fake clock so successive rows get strictly
// increasing created_at values.
func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Millisecond)
	return m.now
}

func newTestService() (*Service, *memStore) {
	m := newMemStore()
	return NewService(m, m, m, m, m), m
}

// --- CategoryStorer ---

func (m *memStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return nil, fmt.Errorf("category name %q: %w", category.Name, domain.ErrConflict)
		}
	}
	c := *category
	c.ID = uuid.New()
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.categories[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memStore) GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (m *memStore) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.categories[id]
	return ok, nil
}

func (m *memStore) ListCategories(ctx context.Context, params store.ListCategoriesParams) ([]domain.Category, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if params.Offset >= len(all) {
		return []domain.Category{}, total, nil
	}
	all = all[params.Offset:]
	if params.Limit < len(all) {
		all = all[:params.Limit]
	}
	return all, total, nil
}

func (m *memStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[category.ID]; !ok {
		return nil, fmt.Errorf("category %s: %w", category.ID, domain.ErrNotFound)
	}
	c := *category
	c.UpdatedAt = m.tick()
	m.categories[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memStore) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	for _, p := range m.products {
		if p.PrimaryCategoryID != nil && *p.PrimaryCategoryID == id {
			p.PrimaryCategoryID = nil
		}
	}
	for k := range m.memberships {
		if k.categoryID == id {
			delete(m.memberships, k)
		}
	}
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	delete(m.categories, id)
	return nil
}

// --- MembershipStorer ---

func (m *memStore) AddMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships[membershipKey{productID, categoryID}] = true
	return nil
}

func (m *memStore) RemoveMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.memberships, membershipKey{productID, categoryID})
	return nil
}

func (m *memStore) ReplaceMemberships(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.memberships {
		if k.productID == productID {
			delete(m.memberships, k)
		}
	}
	for _, id := range categoryIDs {
		m.memberships[membershipKey{productID, id}] = true
	}
	return nil
}

func (m *memStore) ListCategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categoryIDsLocked(productID), nil
}

func (m *memStore) categoryIDsLocked(productID uuid.UUID) []uuid.UUID {
	ids := []uuid.UUID{}
	for k := range m.memberships {
		if k.productID == productID {
			ids = append(ids, k.categoryID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func (m *memStore) ListMemberProductIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []uuid.UUID{}
	for k := range m.memberships {
		if k.categoryID == categoryID {
			ids = append(ids, k.productID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

func (m *memStore) SetPrimaryCategory(ctx context.Context, productID uuid.UUID, categoryID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	p.PrimaryCategoryID = categoryID
	return nil
}

// --- ProductStorer ---

func (m *memStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *product
	p.ID = uuid.New()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	p.CategoryIDs = []uuid.UUID{}
	m.products[p.ID] = &p
	out := p
	return &out, nil
}

func (m *memStore) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	out := *p
	out.CategoryIDs = m.categoryIDsLocked(id)
	return &out, nil
}

func (m *memStore) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.products[id]
	return ok, nil
}

func (m *memStore) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filteredProductsLocked(params.CategoryID)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if params.Offset >= len(all) {
		return []domain.Product{}, total, nil
	}
	all = all[params.Offset:]
	if params.Limit < len(all) {
		all = all[:params.Limit]
	}
	return all, total, nil
}

func (m *memStore) filteredProductsLocked(categoryID *uuid.UUID) []domain.Product {
	all := []domain.Product{}
	for id, p := range m.products {
		if categoryID != nil && !m.memberships[membershipKey{id, *categoryID}] {
			continue
		}
		out := *p
		out.CategoryIDs = m.categoryIDsLocked(id)
		all = append(all, out)
	}
	return all
}

func (m *memStore) ListProductsKeyset(ctx context.Context, params store.KeysetParams) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filteredProductsLocked(params.CategoryID)
	sortKeysetDesc(all, func(p domain.Product) (time.Time, uuid.UUID) { return p.CreatedAt, p.ID })
	all = applyAfter(all, params.After, func(p domain.Product) (time.Time, uuid.UUID) { return p.CreatedAt, p.ID })
	if params.Limit < len(all) {
		all = all[:params.Limit]
	}
	return all, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[product.ID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", product.ID, domain.ErrNotFound)
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.UpdatedAt = m.tick()
	out := *existing
	out.CategoryIDs = m.categoryIDsLocked(out.ID)
	return &out, nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	for k := range m.memberships {
		if k.productID == id {
			delete(m.memberships, k)
		}
	}
	for vid, v := range m.variants {
		if v.ProductID == id {
			delete(m.variants, vid)
		}
	}
	delete(m.products, id)
	return nil
}

// --- VariantStorer ---

func (m *memStore) CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[variant.ProductID]; !ok {
		return nil, fmt.Errorf("product %s: %w", variant.ProductID, domain.ErrNotFound)
	}
	for _, v := range m.variants {
		if v.SKU == variant.SKU {
			return nil, fmt.Errorf("variant sku %q: %w", variant.SKU, domain.ErrConflict)
		}
	}
	v := *variant
	v.ID = uuid.New()
	v.CreatedAt = m.tick()
	v.UpdatedAt = v.CreatedAt
	m.variants[v.ID] = &v
	out := v
	return &out, nil
}

func (m *memStore) GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant %s: %w", id, domain.ErrNotFound)
	}
	out := *v
	return &out, nil
}

func (m *memStore) ListVariantsKeyset(ctx context.Context, productID uuid.UUID, params store.KeysetParams) ([]domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []domain.ProductVariant{}
	for _, v := range m.variants {
		if v.ProductID == productID {
			all = append(all, *v)
		}
	}
	sortKeysetDesc(all, func(v domain.ProductVariant) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID })
	all = applyAfter(all, params.After, func(v domain.ProductVariant) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID })
	if params.Limit < len(all) {
		all = all[:params.Limit]
	}
	return all, nil
}

func (m *memStore) UpdateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.variants[variant.ID]
	if !ok {
		return nil, fmt.Errorf("variant %s: %w", variant.ID, domain.ErrNotFound)
	}
	existing.SKU = variant.SKU
	existing.Price = variant.Price
	existing.Stock = variant.Stock
	existing.UpdatedAt = m.tick()
	out := *existing
	return &out, nil
}

// --- AttributeStorer ---

func (m *memStore) CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) (*domain.AttributeDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.defs {
		if d.Name == def.Name && d.Scope == def.Scope {
			return nil, fmt.Errorf("attribute %q scope %s: %w", def.Name, def.Scope, domain.ErrConflict)
		}
	}
	d := *def
	d.ID = uuid.New()
	m.defs[d.ID] = &d
	out := d
	return &out, nil
}

func (m *memStore) GetDefinitionByID(ctx context.Context, id uuid.UUID) (*domain.AttributeDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok {
		return nil, fmt.Errorf("attribute definition %s: %w", id, domain.ErrNotFound)
	}
	out := *d
	return &out, nil
}

func (m *memStore) ListDefinitions(ctx context.Context) ([]domain.AttributeDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.AttributeDefinition, 0, len(m.defs))
	for _, d := range m.defs {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (m *memStore) CreateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	return m.createValue(m.productValues, value)
}

func (m *memStore) UpdateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	return m.updateValue(m.productValues, value)
}

func (m *memStore) ListProductValues(ctx context.Context, productID uuid.UUID) ([]domain.AttributeValue, error) {
	return m.listValues(m.productValues, productID), nil
}

func (m *memStore) CreateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	return m.createValue(m.variantValues, value)
}

func (m *memStore) UpdateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	return m.updateValue(m.variantValues, value)
}

func (m *memStore) ListVariantValues(ctx context.Context, variantID uuid.UUID) ([]domain.AttributeValue, error) {
	return m.listValues(m.variantValues, variantID), nil
}

func (m *memStore) createValue(table map[valueKey]*domain.AttributeValue, value *domain.AttributeValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := valueKey{value.OwnerID, value.AttributeID}
	if _, ok := table[key]; ok {
		return fmt.Errorf("attribute value (%s, %s): %w", value.OwnerID, value.AttributeID, domain.ErrConflict)
	}
	v := *value
	table[key] = &v
	return nil
}

func (m *memStore) updateValue(table map[valueKey]*domain.AttributeValue, value *domain.AttributeValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := valueKey{value.OwnerID, value.AttributeID}
	if _, ok := table[key]; !ok {
		return fmt.Errorf("attribute value (%s, %s): %w", value.OwnerID, value.AttributeID, domain.ErrNotFound)
	}
	v := *value
	table[key] = &v
	return nil
}

func (m *memStore) listValues(table map[valueKey]*domain.AttributeValue, ownerID uuid.UUID) []domain.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.AttributeValue{}
	for k, v := range table {
		if k.ownerID == ownerID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].AttributeID[:], out[j].AttributeID[:]) < 0 })
	return out
}

// --- keyset helpers shared by products and variants ---

func sortKeysetDesc[T any](rows []T, key func(T) (time.Time, uuid.UUID)) {
	sort.Slice(rows, func(i, j int) bool {
		ti, ii := key(rows[i])
		tj, ij := key(rows[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return bytes.Compare(ii[:], ij[:]) > 0
	})
}

func applyAfter[T any](rows []T, after *store.KeysetPosition, key func(T) (time.Time, uuid.UUID)) []T {
	if after == nil {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		t, id := key(r)
		if t.Before(after.CreatedAt) || (t.Equal(after.CreatedAt) && bytes.Compare(id[:], after.ID[:]) < 0) {
			out = append(out, r)
		}
	}
	return out
}
