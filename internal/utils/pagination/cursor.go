package pagination

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// Cursor is the opaque pagination state we encode/decode.
// FollowerID + FollowedUnix (in millis) establish a stable cursor over
// follower listings ordered by followed_at DESC, follower_id DESC.
type Cursor struct {
	FollowerID   uint64 `json:"follower_id"`
	FollowedUnix int64  `json:"followed_unix,omitempty"`
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}
	return c, nil
}
