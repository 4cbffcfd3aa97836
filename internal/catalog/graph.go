package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"product-catalog-core/internal/domain"
	"product-catalog-core/internal/store"
)

// CategoryGraph maintains the category hierarchy and the category-product
// membership invariants. Membership lives in a single index owned by the
// membership store rather than as mutual object pointers, so every
// synchronization rule runs through one code path here.
type CategoryGraph struct {
	categories  store.CategoryStorer
	memberships store.MembershipStorer
}

// NewCategoryGraph creates a CategoryGraph backed by the given stores.
func NewCategoryGraph(categories store.CategoryStorer, memberships store.MembershipStorer) *CategoryGraph {
	return &CategoryGraph{categories: categories, memberships: memberships}
}

// SetParent validates and applies a parent assignment to the in-memory
// category; the caller persists the change. It rejects a direct
// self-reference with domain.ErrSelfParent and walks the full ancestor
// chain of the new parent so a category can never become its own
// ancestor, directly or transitively.
func (g *CategoryGraph) SetParent(ctx context.Context, category *domain.Category, parentID uuid.UUID) error {
	if parentID == category.ID {
		return fmt.Errorf("category %s: %w", category.ID, domain.ErrSelfParent)
	}
	parent, err := g.categories.GetCategoryByID(ctx, parentID)
	if err != nil {
		return err
	}
	seen := map[uuid.UUID]bool{category.ID: true, parent.ID: true}
	for cur := parent; cur.ParentID != nil; {
		next := *cur.ParentID
		if next == category.ID {
			return fmt.Errorf("category %s cannot adopt parent %s: %w", category.ID, parentID, domain.ErrCycle)
		}
		if seen[next] {
			// The stored chain already loops; refuse to extend it.
			return fmt.Errorf("category %s ancestor chain: %w", parentID, domain.ErrCycle)
		}
		seen[next] = true
		cur, err = g.categories.GetCategoryByID(ctx, next)
		if err != nil {
			return err
		}
	}
	category.ParentID = &parentID
	return nil
}

// AssignPrimaryCategory makes categoryID the product's primary category,
// keeping the membership set in sync: the product leaves the old primary
// category's membership and joins the new one. Assigning the current
// primary again is a no-op.
func (g *CategoryGraph) AssignPrimaryCategory(ctx context.Context, product *domain.Product, categoryID uuid.UUID) error {
	if product.PrimaryCategoryID != nil && *product.PrimaryCategoryID == categoryID {
		return nil
	}
	if err := g.requireCategory(ctx, categoryID); err != nil {
		return err
	}
	if old := product.PrimaryCategoryID; old != nil {
		if err := g.memberships.RemoveMembership(ctx, product.ID, *old); err != nil {
			return err
		}
		product.CategoryIDs = removeID(product.CategoryIDs, *old)
	}
	if !containsID(product.CategoryIDs, categoryID) {
		if err := g.memberships.AddMembership(ctx, product.ID, categoryID); err != nil {
			return err
		}
		product.CategoryIDs = append(product.CategoryIDs, categoryID)
	}
	id := categoryID
	product.PrimaryCategoryID = &id
	return g.memberships.SetPrimaryCategory(ctx, product.ID, &id)
}

// SetCategorySet atomically replaces the product's full category
// membership with the given set. Every id must resolve; the first miss
// fails the whole call with domain.ErrNotFound. The primary category is
// re-added if the replacement dropped it, preserving the invariant that
// the primary is always a member.
func (g *CategoryGraph) SetCategorySet(ctx context.Context, product *domain.Product, categoryIDs []uuid.UUID) error {
	set := make([]uuid.UUID, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if containsID(set, id) {
			continue
		}
		if err := g.requireCategory(ctx, id); err != nil {
			return err
		}
		set = append(set, id)
	}
	if primary := product.PrimaryCategoryID; primary != nil && !containsID(set, *primary) {
		set = append(set, *primary)
	}
	if err := g.memberships.ReplaceMemberships(ctx, product.ID, set); err != nil {
		return err
	}
	product.CategoryIDs = set
	return nil
}

// RemoveMembership unlinks the product from the category. When the
// removed category was the primary, the primary reference is cleared as
// well; other memberships are untouched.
func (g *CategoryGraph) RemoveMembership(ctx context.Context, product *domain.Product, categoryID uuid.UUID) error {
	if err := g.memberships.RemoveMembership(ctx, product.ID, categoryID); err != nil {
		return err
	}
	product.CategoryIDs = removeID(product.CategoryIDs, categoryID)
	if product.PrimaryCategoryID != nil && *product.PrimaryCategoryID == categoryID {
		product.PrimaryCategoryID = nil
		return g.memberships.SetPrimaryCategory(ctx, product.ID, nil)
	}
	return nil
}

// MemberProductIDs returns the ids of every product in the category.
func (g *CategoryGraph) MemberProductIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	if err := g.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return g.memberships.ListMemberProductIDs(ctx, categoryID)
}

func (g *CategoryGraph) requireCategory(ctx context.Context, id uuid.UUID) error {
	exists, err := g.categories.CategoryExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
