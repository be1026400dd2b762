// Package pagination implements the keyset cursors used by the listing
// endpoints. Pages are ordered by (created_at, id) descending; a cursor
// anchors the follow-up query at the last row already served.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when a listing request gives none.
	DefaultLimit = 25
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100
)

// Cursor anchors a keyset page. Follow-up queries filter with a strict
// (created_at, id) < (cursor) comparison, so the anchor must be the last
// row of the page already served, never the first row of the next one.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Keyed is a listed row that can anchor a cursor.
type Keyed interface {
	CursorKey() (time.Time, uuid.UUID)
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// FetchLimit returns the normalized limit plus one probe row, so TrimPage
// can tell whether another page exists without a second count query.
func FetchLimit(limit int) int {
	return NormalizeLimit(limit) + 1
}

// TrimPage cuts an over-fetched row set down to the requested page size.
// When the probe row is present it derives the continuation cursor from the
// last row kept; a nil cursor means the listing is exhausted.
func TrimPage[T Keyed](rows []T, limit int) ([]T, *Cursor) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, nil
	}
	rows = rows[:size]
	createdAt, id := rows[size-1].CursorKey()
	return rows, &Cursor{CreatedAt: createdAt, ID: id}
}

// EncodeCursor renders the cursor as an opaque, URL-safe token.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a token back into its components. A blank token means
// the first page and yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{
		CreatedAt: t,
		ID:        id,
	}, nil
}
