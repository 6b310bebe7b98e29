package classifier

import (
	"context"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/phishscreen/internal/screen/domain"
)

// newLRU is swapped in tests to exercise the constructor error path.
var newLRU = lru.New[uint64, domain.Classification]

// Cached remembers successful classifications of identical payloads.
type Cached struct {
	next   Classifier
	lru    *lru.Cache[uint64, domain.Classification]
	hits   uint64
	misses uint64
}

// NewCached wraps next with an LRU of size entries. A size <= 0 returns next
// unchanged.
func NewCached(next Classifier, size int) (Classifier, error) {
	if size <= 0 {
		return next, nil
	}
	c, err := newLRU(size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, lru: c}, nil
}

func (c *Cached) Classify(ctx context.Context, email domain.Email) (domain.Classification, error) {
	key := payloadKey(email)
	if v, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return v, nil
	}
	atomic.AddUint64(&c.misses, 1)

	v, err := c.next.Classify(ctx, email)
	if err != nil {
		return domain.Classification{}, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Len returns the number of cached classifications.
func (c *Cached) Len() int { return c.lru.Len() }

// Stats returns cumulative hit and miss counters.
func (c *Cached) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// payloadKey hashes the fields with a separator so that moving text between
// fields changes the key.
func payloadKey(e domain.Email) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(e.Subject)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(e.Body)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(e.Sender)
	return d.Sum64()
}
