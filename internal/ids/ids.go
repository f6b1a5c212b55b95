package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewPublic returns an identifier safe to expose in API responses and URLs.
// The prefix marks the resource kind (e.g. "O" organization, "U" user,
// "S" schedule, "T" token) so identifiers stay distinguishable in logs.
func NewPublic(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return New()
	}
	return prefix + New()
}
