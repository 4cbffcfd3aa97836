package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product-catalog-core/internal/domain"
)

// --- AttributeStorer implementation ---

func (s *PostgresStore) CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) (*domain.AttributeDefinition, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	query := `
		INSERT INTO catalog.attribute_definitions (id, name, data_type, scope, filterable)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, data_type, scope, filterable;
	`
	var created domain.AttributeDefinition
	err := s.db.QueryRowContext(ctx, query,
		def.ID, def.Name, def.DataType, def.Scope, def.Filterable,
	).Scan(&created.ID, &created.Name, &created.DataType, &created.Scope, &created.Filterable)
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("store: CreateDefinition failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetDefinitionByID(ctx context.Context, id uuid.UUID) (*domain.AttributeDefinition, error) {
	query := `
		SELECT id, name, data_type, scope, filterable
		FROM catalog.attribute_definitions
		WHERE id = $1;
	`
	var def domain.AttributeDefinition
	err := s.db.QueryRowContext(ctx, query, id).Scan(&def.ID, &def.Name, &def.DataType, &def.Scope, &def.Filterable)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attribute %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("store: GetDefinitionByID failed to scan row: %w", err)
	}
	return &def, nil
}

func (s *PostgresStore) ListDefinitions(ctx context.Context) ([]domain.AttributeDefinition, error) {
	query := `
		SELECT id, name, data_type, scope, filterable
		FROM catalog.attribute_definitions
		ORDER BY name ASC, scope ASC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListDefinitions failed to query definitions: %w", err)
	}
	defer rows.Close()

	defs := []domain.AttributeDefinition{}
	for rows.Next() {
		var def domain.AttributeDefinition
		if err := rows.Scan(&def.ID, &def.Name, &def.DataType, &def.Scope, &def.Filterable); err != nil {
			return nil, fmt.Errorf("store: ListDefinitions failed to scan row: %w", err)
		}
		defs = append(defs, def)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListDefinitions iteration error: %w", err)
	}
	return defs, nil
}

func (s *PostgresStore) CreateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	query := `
		INSERT INTO catalog.product_attribute_values (product_id, attribute_id, value_string, value_number, value_boolean)
		VALUES ($1, $2, $3, $4, $5);
	`
	return s.insertValue(ctx, query, value, "product_attribute_values")
}

func (s *PostgresStore) UpdateProductValue(ctx context.Context, value *domain.AttributeValue) error {
	query := `
		UPDATE catalog.product_attribute_values
		SET value_string = $3, value_number = $4, value_boolean = $5
		WHERE product_id = $1 AND attribute_id = $2;
	`
	return s.updateValue(ctx, query, value)
}

func (s *PostgresStore) ListProductValues(ctx context.Context, productID uuid.UUID) ([]domain.AttributeValue, error) {
	query := `
		SELECT product_id, attribute_id, value_string, value_number, value_boolean
		FROM catalog.product_attribute_values
		WHERE product_id = $1
		ORDER BY attribute_id;
	`
	return s.queryValues(ctx, query, productID)
}

func (s *PostgresStore) CreateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	query := `
		INSERT INTO catalog.variant_attribute_values (variant_id, attribute_id, value_string, value_number, value_boolean)
		VALUES ($1, $2, $3, $4, $5);
	`
	return s.insertValue(ctx, query, value, "variant_attribute_values")
}

func (s *PostgresStore) UpdateVariantValue(ctx context.Context, value *domain.AttributeValue) error {
	query := `
		UPDATE catalog.variant_attribute_values
		SET value_string = $3, value_number = $4, value_boolean = $5
		WHERE variant_id = $1 AND attribute_id = $2;
	`
	return s.updateValue(ctx, query, value)
}

func (s *PostgresStore) ListVariantValues(ctx context.Context, variantID uuid.UUID) ([]domain.AttributeValue, error) {
	query := `
		SELECT variant_id, attribute_id, value_string, value_number, value_boolean
		FROM catalog.variant_attribute_values
		WHERE variant_id = $1
		ORDER BY attribute_id;
	`
	return s.queryValues(ctx, query, variantID)
}

// insertValue relies on the composite primary key for the insert-if-absent
// contract: a concurrent duplicate loses with domain.ErrConflict.
func (s *PostgresStore) insertValue(ctx context.Context, query string, value *domain.AttributeValue, table string) error {
	_, err := s.db.ExecContext(ctx, query,
		value.OwnerID, value.AttributeID, value.ValueString, decimalArg(value.ValueNumber), value.ValueBoolean)
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		if isForeignKeyViolation(err, "attribute_id_fkey") {
			return fmt.Errorf("attribute %s: %w", value.AttributeID, domain.ErrNotFound)
		}
		return fmt.Errorf("store: insert into %s failed: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) updateValue(ctx context.Context, query string, value *domain.AttributeValue) error {
	result, err := s.db.ExecContext(ctx, query,
		value.OwnerID, value.AttributeID, value.ValueString, decimalArg(value.ValueNumber), value.ValueBoolean)
	if err != nil {
		return fmt.Errorf("store: attribute value update failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: attribute value update rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("attribute value (%s, %s): %w", value.OwnerID, value.AttributeID, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) queryValues(ctx context.Context, query string, ownerID uuid.UUID) ([]domain.AttributeValue, error) {
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: attribute value query failed: %w", err)
	}
	defer rows.Close()

	values := []domain.AttributeValue{}
	for rows.Next() {
		var v domain.AttributeValue
		var num decimal.NullDecimal
		if err := rows.Scan(&v.OwnerID, &v.AttributeID, &v.ValueString, &num, &v.ValueBoolean); err != nil {
			return nil, fmt.Errorf("store: attribute value scan failed: %w", err)
		}
		if num.Valid {
			v.ValueNumber = &num.Decimal
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: attribute value iteration error: %w", err)
	}
	return values, nil
}

// decimalArg converts an optional decimal into a driver-friendly NULL.
func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
