package repositories

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor is the keyset position of the last item on a page: the ordering
// timestamp plus the row id as a tiebreaker. It is handed to clients as an
// opaque base64 token.
type Cursor struct {
	Time time.Time
	ID   uuid.UUID
}

func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%s", c.Time.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{Time: ts, ID: id}, nil
}
