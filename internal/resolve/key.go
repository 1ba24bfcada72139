package resolve

import (
	"strconv"
	"strings"

	"ldraw-bridge/internal/ldraw"
)

// maxKeyLen matches the host's datablock name limit.
const maxKeyLen = 63

// Key is the identity of a resolved part: its name and effective colour,
// with an edge marker for colour 24. At most one mesh exists per key.
type Key string

// MakeKey builds the key for a part file resolved in colour code.
func MakeKey(name string, code int) Key {
	parts := []string{name, strconv.Itoa(code)}
	if code == ldraw.ColorEdge {
		parts = append(parts, "edge")
	}
	k := strings.ToLower(strings.Join(parts, "_"))
	if len(k) > maxKeyLen {
		k = k[:maxKeyLen]
	}
	return Key(k)
}
