package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"product-catalog-core/internal/domain"
)

const productColumns = "p.id, p.name, p.description, p.price, p.primary_category_id, p.created_at, p.updated_at"

// --- ProductStorer implementation ---

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	query := `
		INSERT INTO catalog.products (id, name, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, price, primary_category_id, created_at, updated_at;
	`
	created, err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.ID, product.Name, product.Description, product.Price))
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	created.CategoryIDs = []uuid.UUID{}
	return created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM catalog.products p
		WHERE p.id = $1;
	`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	if err := s.attachCategoryIDs(ctx, []*domain.Product{product}); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *PostgresStore) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM catalog.products WHERE id = $1);`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: ProductExists failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	var queryArgs []interface{}
	join := ""
	whereCondition := ""
	if params.CategoryID != nil {
		join = " JOIN catalog.product_categories pc ON pc.product_id = p.id"
		whereCondition = " WHERE pc.category_id = $1"
		queryArgs = append(queryArgs, *params.CategoryID)
	}

	countQuery := "SELECT COUNT(*) FROM catalog.products p" + join + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	sortColumn := "created_at"
	allowedSortColumns := map[string]string{
		"name":       "name",
		"price":      "price",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	if col, ok := allowedSortColumns[strings.ToLower(params.SortBy)]; ok {
		sortColumn = col
	}
	sortOrder := "DESC"
	if strings.ToUpper(params.SortOrder) == "ASC" {
		sortOrder = "ASC"
	}

	argID := len(queryArgs) + 1
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM catalog.products p%s%s ORDER BY p.%s %s, p.id DESC LIMIT $%d OFFSET $%d",
		productColumns, join, whereCondition, sortColumn, sortOrder, argID, argID+1)
	queryArgs = append(queryArgs, params.Limit, params.Offset)

	products, err := s.queryProducts(ctx, dataQuery, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	return products, totalCount, nil
}

// ListProductsKeyset fetches rows in (created_at DESC, id DESC) order,
// optionally filtered to one category and anchored strictly after the
// given position. The compound tie-break on id is what keeps the
// traversal free of duplicates and gaps when created_at values collide.
func (s *PostgresStore) ListProductsKeyset(ctx context.Context, params KeysetParams) ([]domain.Product, error) {
	var queryArgs []interface{}
	var whereClauses []string
	join := ""
	argID := 1

	if params.CategoryID != nil {
		join = " JOIN catalog.product_categories pc ON pc.product_id = p.id"
		whereClauses = append(whereClauses, fmt.Sprintf("pc.category_id = $%d", argID))
		queryArgs = append(queryArgs, *params.CategoryID)
		argID++
	}
	if params.After != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(p.created_at < $%d OR (p.created_at = $%d AND p.id < $%d))", argID, argID, argID+1))
		queryArgs = append(queryArgs, params.After.CreatedAt, params.After.ID)
		argID += 2
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM catalog.products p%s%s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d",
		productColumns, join, whereCondition, argID)
	queryArgs = append(queryArgs, params.Limit)

	return s.queryProducts(ctx, query, queryArgs...)
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE catalog.products
		SET name = $1, description = $2, price = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING id, name, description, price, primary_category_id, created_at, updated_at;
	`
	updated, err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", product.ID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	if err := s.attachCategoryIDs(ctx, []*domain.Product{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes the product row; variants, attribute values, and
// membership rows follow through ON DELETE CASCADE.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM catalog.products WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: product query failed: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	var refs []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: product scan failed: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: product iteration error: %w", err)
	}
	for i := range products {
		refs = append(refs, &products[i])
	}
	if err := s.attachCategoryIDs(ctx, refs); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// attachCategoryIDs loads the membership sets for a batch of products in
// one query.
func (s *PostgresStore) attachCategoryIDs(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	query := `
		SELECT product_id, category_id
		FROM catalog.product_categories
		WHERE product_id = ANY($1::uuid[])
		ORDER BY category_id;
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("store: membership query failed: %w", err)
	}
	defer rows.Close()

	byProduct := make(map[uuid.UUID][]uuid.UUID, len(products))
	for rows.Next() {
		var productID, categoryID uuid.UUID
		if err := rows.Scan(&productID, &categoryID); err != nil {
			return fmt.Errorf("store: membership scan failed: %w", err)
		}
		byProduct[productID] = append(byProduct[productID], categoryID)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("store: membership iteration error: %w", err)
	}
	for _, p := range products {
		if set, ok := byProduct[p.ID]; ok {
			p.CategoryIDs = set
		} else {
			p.CategoryIDs = []uuid.UUID{}
		}
	}
	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var primary uuid.NullUUID
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &primary, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if primary.Valid {
		p.PrimaryCategoryID = &primary.UUID
	}
	return &p, nil
}

// --- VariantStorer implementation ---

const variantColumns = "v.id, v.product_id, v.sku, v.price, v.stock, v.created_at, v.updated_at"

func (s *PostgresStore) CreateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	query := `
		INSERT INTO catalog.product_variants (id, product_id, sku, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, sku, price, stock, created_at, updated_at;
	`
	created, err := scanVariant(s.db.QueryRowContext(ctx, query,
		variant.ID, variant.ProductID, variant.SKU, variant.Price, variant.Stock))
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		if isForeignKeyViolation(err, "product_variants_product_id_fkey") {
			return nil, fmt.Errorf("product %s: %w", variant.ProductID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: CreateVariant failed to scan row: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM catalog.product_variants v
		WHERE v.id = $1;
	`
	variant, err := scanVariant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: GetVariantByID failed to scan row: %w", err)
	}
	return variant, nil
}

func (s *PostgresStore) ListVariantsKeyset(ctx context.Context, productID uuid.UUID, params KeysetParams) ([]domain.ProductVariant, error) {
	queryArgs := []interface{}{productID}
	predicate := ""
	argID := 2
	if params.After != nil {
		predicate = fmt.Sprintf(" AND (v.created_at < $%d OR (v.created_at = $%d AND v.id < $%d))", argID, argID, argID+1)
		queryArgs = append(queryArgs, params.After.CreatedAt, params.After.ID)
		argID += 2
	}
	query := fmt.Sprintf(
		"SELECT %s FROM catalog.product_variants v WHERE v.product_id = $1%s ORDER BY v.created_at DESC, v.id DESC LIMIT $%d",
		variantColumns, predicate, argID)
	queryArgs = append(queryArgs, params.Limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListVariantsKeyset failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := make([]domain.ProductVariant, 0, params.Limit)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListVariantsKeyset failed to scan variant row: %w", err)
		}
		variants = append(variants, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListVariantsKeyset iteration error: %w", err)
	}
	return variants, nil
}

func (s *PostgresStore) UpdateVariant(ctx context.Context, variant *domain.ProductVariant) (*domain.ProductVariant, error) {
	query := `
		UPDATE catalog.product_variants
		SET sku = $1, price = $2, stock = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING id, product_id, sku, price, stock, created_at, updated_at;
	`
	updated, err := scanVariant(s.db.QueryRowContext(ctx, query,
		variant.SKU, variant.Price, variant.Stock, variant.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", variant.ID, domain.ErrNotFound)
		}
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("store: UpdateVariant failed to scan row: %w", err)
	}
	return updated, nil
}

func scanVariant(row rowScanner) (*domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
