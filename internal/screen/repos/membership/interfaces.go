package membership

import "context"

// Sizer computes Bloom filter parameters from capacity (n) and target
// false-positive rate (p). It returns m (number of bits) and k (number of
// hash probes).
type Sizer interface {
	Size(n uint64, p float64) (m uint64, k uint)
}

// Filter is the approximate-membership set the repository publishes.
// Add only ever sets bits; MightContain never reports a false negative.
type Filter interface {
	Add(key []byte)
	MightContain(key []byte) bool
	Stats() FilterStats
}

// FilterFactory builds a fresh Filter sized for capacity and errorRate.
// Out-of-range parameters fail with domain.ErrInvalidParameter.
type FilterFactory interface {
	New(capacity uint64, errorRate float64) (Filter, error)
}

// CorpusSource yields the raw known-bad URL strings of one corpus input.
// Name identifies the source in logs and stats.
type CorpusSource interface {
	Name() string
	Entries(ctx context.Context) ([]string, error)
}
