package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the catalog hierarchy. The json tags correspond to
// the fields expected in API responses/requests.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"` // Pointer for nullable fields, omitempty to exclude if nil
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
