package catalog

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"product-catalog-core/internal/domain"
)

// cursorDelimiter separates the timestamp from the identifier inside the
// cursor payload. '|' never appears in an RFC 3339 timestamp or in the
// canonical UUID form, so splitting on it is unambiguous.
const cursorDelimiter = "|"

// EncodeCursor packs a pagination position into an opaque, URL-safe
// token. Callers must treat the token as atomic; its internal layout is
// not part of the API contract.
func EncodeCursor(createdAt time.Time, id uuid.UUID) (string, error) {
	if createdAt.IsZero() || id == uuid.Nil {
		return "", fmt.Errorf("cursor requires createdAt and id: %w", domain.ErrInvalidCursor)
	}
	payload := createdAt.UTC().Format(time.RFC3339Nano) + cursorDelimiter + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload)), nil
}

// DecodeCursor reverses EncodeCursor. It is purely syntactic: a cursor
// pointing past a deleted row still decodes, and the consuming query
// simply yields fewer rows. Any token not produced by EncodeCursor fails
// with domain.ErrInvalidCursor.
func DecodeCursor(token string) (time.Time, uuid.UUID, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor must not be blank: %w", domain.ErrInvalidCursor)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor is not valid base64url: %w", domain.ErrInvalidCursor)
	}
	parts := strings.Split(string(raw), cursorDelimiter)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor format: %w", domain.ErrInvalidCursor)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor timestamp: %w", domain.ErrInvalidCursor)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor id: %w", domain.ErrInvalidCursor)
	}
	return createdAt, id, nil
}
