package domain

import "errors"

// Error kinds surfaced by the catalog core. Callers classify with
// errors.Is; the point of detection wraps these with entity context via
// fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint was violated (duplicate
	// name, SKU, or (owner, attribute) value pair).
	ErrConflict = errors.New("already exists")

	// ErrSelfParent means a category was asked to become its own parent.
	ErrSelfParent = errors.New("category cannot be its own parent")

	// ErrCycle means a parent assignment would make a category its own
	// ancestor.
	ErrCycle = errors.New("category parent chain would form a cycle")

	// ErrScopeMismatch means an attribute was assigned to a target its
	// scope does not allow.
	ErrScopeMismatch = errors.New("attribute scope does not allow this target")

	// ErrMissingValue means the value field matching the attribute's data
	// type was absent from the request.
	ErrMissingValue = errors.New("value for attribute data type is missing")

	// ErrUnsupportedType means a data type or scope outside the supported
	// sets.
	ErrUnsupportedType = errors.New("unsupported attribute data type")

	// ErrInvalidCursor means a pagination token that was not produced by
	// the cursor encoder.
	ErrInvalidCursor = errors.New("invalid cursor")
)
