package visitors

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh visitor identifier: a random (v4) UUID rendered as
// 32 lowercase hex characters without separators. The randomness comes from
// crypto/rand, so ids are not predictable from earlier ones.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewUUID returns a random UUID in its canonical dashed form.
func NewUUID() string {
	return uuid.NewString()
}
