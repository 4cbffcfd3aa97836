package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product-catalog-core/internal/domain"
	"product-catalog-core/internal/store"
)

// AttributeValueInput is the plain-data request for attaching a value to
// a product or variant. Exactly one of the three value fields should be
// set; which one is required is decided by the attribute definition.
type AttributeValueInput struct {
	AttributeID  uuid.UUID
	ValueString  *string
	ValueNumber  *decimal.Decimal
	ValueBoolean *bool
}

// AttributeCatalog owns attribute definitions and validates that value
// assignments match the definition's data type and scope.
type AttributeCatalog struct {
	attrs store.AttributeStorer
}

// NewAttributeCatalog creates an AttributeCatalog backed by the given store.
func NewAttributeCatalog(attrs store.AttributeStorer) *AttributeCatalog {
	return &AttributeCatalog{attrs: attrs}
}

// Define registers a new attribute definition. The (name, scope) pair is
// globally unique; a duplicate fails with domain.ErrConflict from the
// store's uniqueness constraint.
func (c *AttributeCatalog) Define(ctx context.Context, name string, dataType domain.AttributeDataType, scope domain.AttributeScope, filterable bool) (*domain.AttributeDefinition, error) {
	if !dataType.Valid() {
		return nil, fmt.Errorf("data type %q: %w", dataType, domain.ErrUnsupportedType)
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("scope %q: %w", scope, domain.ErrUnsupportedType)
	}
	def := &domain.AttributeDefinition{
		Name:       name,
		DataType:   dataType,
		Scope:      scope,
		Filterable: filterable,
	}
	return c.attrs.CreateDefinition(ctx, def)
}

// GetDefinition resolves an attribute definition by id.
func (c *AttributeCatalog) GetDefinition(ctx context.Context, id uuid.UUID) (*domain.AttributeDefinition, error) {
	return c.attrs.GetDefinitionByID(ctx, id)
}

// ListDefinitions returns every attribute definition.
func (c *AttributeCatalog) ListDefinitions(ctx context.Context) ([]domain.AttributeDefinition, error) {
	return c.attrs.ListDefinitions(ctx)
}

// ValidateAssignment checks that the request carries exactly one value
// field, that the definition may be assigned to the target scope, and
// that the populated field matches the definition's data type.
func (c *AttributeCatalog) ValidateAssignment(def *domain.AttributeDefinition, req AttributeValueInput, target domain.AttributeScope) error {
	if n := countValueFields(req); n != 1 {
		return fmt.Errorf("attribute %q requires exactly one value field, got %d: %w", def.Name, n, domain.ErrMissingValue)
	}
	if !def.Scope.Allows(target) {
		return fmt.Errorf("attribute %q has scope %s, target is %s: %w", def.Name, def.Scope, target, domain.ErrScopeMismatch)
	}
	switch def.DataType {
	case domain.DataTypeString:
		if req.ValueString == nil {
			return fmt.Errorf("attribute %q expects value_string: %w", def.Name, domain.ErrMissingValue)
		}
	case domain.DataTypeNumber:
		if req.ValueNumber == nil {
			return fmt.Errorf("attribute %q expects value_number: %w", def.Name, domain.ErrMissingValue)
		}
	case domain.DataTypeBoolean:
		if req.ValueBoolean == nil {
			return fmt.Errorf("attribute %q expects value_boolean: %w", def.Name, domain.ErrMissingValue)
		}
	default:
		return fmt.Errorf("data type %q: %w", def.DataType, domain.ErrUnsupportedType)
	}
	return nil
}

func countValueFields(req AttributeValueInput) int {
	n := 0
	if req.ValueString != nil {
		n++
	}
	if req.ValueNumber != nil {
		n++
	}
	if req.ValueBoolean != nil {
		n++
	}
	return n
}

// BuildTypedValue constructs an attribute value with exactly one payload
// field populated per the definition's data type. The other two fields
// are left nil even if the request carried them, so a stale value can
// never survive a type-driven write.
func (c *AttributeCatalog) BuildTypedValue(def *domain.AttributeDefinition, req AttributeValueInput) (*domain.AttributeValue, error) {
	value := &domain.AttributeValue{AttributeID: def.ID}
	switch def.DataType {
	case domain.DataTypeString:
		value.ValueString = req.ValueString
	case domain.DataTypeNumber:
		value.ValueNumber = req.ValueNumber
	case domain.DataTypeBoolean:
		value.ValueBoolean = req.ValueBoolean
	default:
		return nil, fmt.Errorf("data type %q: %w", def.DataType, domain.ErrUnsupportedType)
	}
	return value, nil
}
