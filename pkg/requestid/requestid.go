package requestid

import (
	"strings"

	"github.com/google/uuid"
)

const DefaultHeaderKey = "X-Request-Id"

// ResolveHeaderKey returns headerKey when non-empty, otherwise the default.
func ResolveHeaderKey(headerKey string) string {
	if v := strings.TrimSpace(headerKey); v != "" {
		return v
	}
	return DefaultHeaderKey
}

// Gen returns a random request id: a version 4 UUID without dashes.
func Gen() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Accept returns a trimmed caller-supplied id when it is usable, otherwise
// a fresh one. Overlong ids are replaced to keep log lines bounded.
func Accept(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return Gen()
	}
	return id
}
