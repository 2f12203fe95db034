package quota

import (
	"fmt"
	"sync"

	"github.com/lostfound-api/internal/domain"
)

// Kind is the submission type a quota counter tracks. Sighting and claim
// counters are independent.
type Kind string

const (
	KindSighting Kind = "sighting"
	KindClaim    Kind = "claim"
)

// Tracker caps how many submissions of each kind an identity may make over
// the process lifetime. Counters only ever grow; there is no decrement.
type Tracker interface {
	// TryReserve atomically checks and increments the counter for
	// (kind, email). Once the limit is reached it fails without mutation.
	TryReserve(kind Kind, email string) error
}

type key struct {
	kind  Kind
	email string
}

type memoryTracker struct {
	mu     sync.Mutex
	counts map[key]int
	limit  int
}

// NewMemoryTracker returns an in-memory Tracker admitting limit submissions
// per (kind, email) pair.
func NewMemoryTracker(limit int) Tracker {
	return &memoryTracker{counts: make(map[key]int), limit: limit}
}

func (t *memoryTracker) TryReserve(kind Kind, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{kind: kind, email: email}
	if t.counts[k] >= t.limit {
		return fmt.Errorf("%s limit reached for %s: %w", kind, email, domain.ErrQuotaExceeded)
	}
	t.counts[k]++
	return nil
}
