package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeDataType is the closed set of value types an attribute
// definition may declare.
type AttributeDataType string

const (
	DataTypeString  AttributeDataType = "STRING"
	DataTypeNumber  AttributeDataType = "NUMBER"
	DataTypeBoolean AttributeDataType = "BOOLEAN"
)

// Valid reports whether t is one of the supported data types.
func (t AttributeDataType) Valid() bool {
	switch t {
	case DataTypeString, DataTypeNumber, DataTypeBoolean:
		return true
	}
	return false
}

// AttributeScope controls which entity kind an attribute may be assigned to.
type AttributeScope string

const (
	ScopeProduct AttributeScope = "PRODUCT"
	ScopeVariant AttributeScope = "VARIANT"
	ScopeBoth    AttributeScope = "BOTH"
)

// Valid reports whether s is one of the supported scopes.
func (s AttributeScope) Valid() bool {
	switch s {
	case ScopeProduct, ScopeVariant, ScopeBoth:
		return true
	}
	return false
}

// Allows reports whether an attribute with scope s may be assigned to a
// target of the given scope (target is always PRODUCT or VARIANT).
func (s AttributeScope) Allows(target AttributeScope) bool {
	return s == ScopeBoth || s == target
}

// AttributeDefinition declares a typed, scoped attribute. Data type and
// scope are immutable after creation; (name, scope) is globally unique.
type AttributeDefinition struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	DataType   AttributeDataType `json:"data_type"`
	Scope      AttributeScope    `json:"scope"`
	Filterable bool              `json:"filterable"`
}

// AttributeValue is one typed value attached to a product or variant,
// identified by the (owner, attribute) pair. Exactly one of the three
// value fields is populated, selected by the definition's data type; the
// others are always nil. Values are built through the attribute catalog,
// which is the single construction path enforcing that shape.
type AttributeValue struct {
	OwnerID      uuid.UUID        `json:"owner_id"`
	AttributeID  uuid.UUID        `json:"attribute_id"`
	ValueString  *string          `json:"value_string,omitempty"`
	ValueNumber  *decimal.Decimal `json:"value_number,omitempty"`
	ValueBoolean *bool            `json:"value_boolean,omitempty"`
}
