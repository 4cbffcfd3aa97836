package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"product-catalog-core/internal/domain"
)

// PostgresStore implements every Storer interface on a single PostgreSQL
// connection pool.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// mapUniqueViolation translates a 23505 unique violation into a
// domain.ErrConflict wrap naming the violated key. Returns nil when err
// is not a unique violation.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "categories_name_key") || strings.Contains(pqErr.Detail, "Key (name)"):
		return fmt.Errorf("category name: %w", domain.ErrConflict)
	case strings.Contains(pqErr.Constraint, "product_variants_sku_key") || strings.Contains(pqErr.Detail, "Key (sku)"):
		return fmt.Errorf("variant sku: %w", domain.ErrConflict)
	case strings.Contains(pqErr.Constraint, "attribute_definitions_name_scope_key"):
		return fmt.Errorf("attribute (name, scope): %w", domain.ErrConflict)
	case strings.Contains(pqErr.Constraint, "product_attribute_values_pkey"),
		strings.Contains(pqErr.Constraint, "variant_attribute_values_pkey"):
		return fmt.Errorf("attribute value pair: %w", domain.ErrConflict)
	}
	return fmt.Errorf("unique constraint %s: %w", pqErr.Constraint, domain.ErrConflict)
}

// isForeignKeyViolation reports whether err is a 23503 against the named
// constraint.
func isForeignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503" && strings.Contains(pqErr.Constraint, constraint)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// --- CategoryStorer implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	query := `
		INSERT INTO catalog.categories (id, name, description, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, parent_id, sort_order, created_at, updated_at;
	`
	row := s.db.QueryRowContext(ctx, query,
		category.ID, category.Name, category.Description, category.ParentID, category.SortOrder)

	created, err := scanCategory(row)
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT id, name, description, parent_id, sort_order, created_at, updated_at
		FROM catalog.categories
		WHERE id = $1;
	`
	category, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return category, nil
}

func (s *PostgresStore) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM catalog.categories WHERE id = $1);`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: CategoryExists failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error) {
	countQuery := `SELECT COUNT(*) FROM catalog.categories;`
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	query := `
		SELECT id, name, description, parent_id, sort_order, created_at, updated_at
		FROM catalog.categories
		ORDER BY sort_order NULLS LAST, name ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.db.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, params.Limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, totalCount, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE catalog.categories
		SET name = $1, description = $2, parent_id = $3, sort_order = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING id, name, description, parent_id, sort_order, created_at, updated_at;
	`
	updated, err := scanCategory(s.db.QueryRowContext(ctx, query,
		category.Name, category.Description, category.ParentID, category.SortOrder, category.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", category.ID, domain.ErrNotFound)
		}
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return updated, nil
}

// DeleteCategory removes a category and every reference to it. Products
// keep existing: they only lose the category reference.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`UPDATE catalog.products SET primary_category_id = NULL WHERE primary_category_id = $1;`,
		`DELETE FROM catalog.product_categories WHERE category_id = $1;`,
		`UPDATE catalog.categories SET parent_id = NULL WHERE parent_id = $1;`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("store: DeleteCategory unlink step failed: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM catalog.categories WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	var parentID uuid.NullUUID
	var sortOrder sql.NullInt64
	err := row.Scan(&c.ID, &c.Name, &c.Description, &parentID, &sortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.UUID
	}
	if sortOrder.Valid {
		v := int(sortOrder.Int64)
		c.SortOrder = &v
	}
	return &c, nil
}

// --- MembershipStorer implementation ---

func (s *PostgresStore) AddMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	query := `
		INSERT INTO catalog.product_categories (product_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`
	if _, err := s.db.ExecContext(ctx, query, productID, categoryID); err != nil {
		if isForeignKeyViolation(err, "product_categories_category_id_fkey") {
			return fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
		}
		if isForeignKeyViolation(err, "product_categories_product_id_fkey") {
			return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
		}
		return fmt.Errorf("store: AddMembership failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMembership(ctx context.Context, productID, categoryID uuid.UUID) error {
	query := `DELETE FROM catalog.product_categories WHERE product_id = $1 AND category_id = $2;`
	if _, err := s.db.ExecContext(ctx, query, productID, categoryID); err != nil {
		return fmt.Errorf("store: RemoveMembership failed: %w", err)
	}
	return nil
}

// ReplaceMemberships swaps the product's membership rows for exactly the
// given set inside one transaction.
func (s *PostgresStore) ReplaceMemberships(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: ReplaceMemberships failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM catalog.product_categories WHERE product_id = $1;`, productID); err != nil {
		return fmt.Errorf("store: ReplaceMemberships failed to clear rows: %w", err)
	}
	if len(categoryIDs) > 0 {
		query := `
			INSERT INTO catalog.product_categories (product_id, category_id)
			SELECT $1, unnest($2::uuid[]);
		`
		if _, err := tx.ExecContext(ctx, query, productID, pq.Array(uuidStrings(categoryIDs))); err != nil {
			return fmt.Errorf("store: ReplaceMemberships failed to insert rows: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListCategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT category_id FROM catalog.product_categories WHERE product_id = $1 ORDER BY category_id;`
	return s.listIDs(ctx, query, productID)
}

func (s *PostgresStore) ListMemberProductIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT product_id FROM catalog.product_categories WHERE category_id = $1 ORDER BY product_id;`
	return s.listIDs(ctx, query, categoryID)
}

func (s *PostgresStore) SetPrimaryCategory(ctx context.Context, productID uuid.UUID, categoryID *uuid.UUID) error {
	query := `UPDATE catalog.products SET primary_category_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2;`
	result, err := s.db.ExecContext(ctx, query, categoryID, productID)
	if err != nil {
		return fmt.Errorf("store: SetPrimaryCategory failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: SetPrimaryCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) listIDs(ctx context.Context, query string, arg interface{}) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("store: id query failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: id scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: id iteration error: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
	}
	return nil
}
