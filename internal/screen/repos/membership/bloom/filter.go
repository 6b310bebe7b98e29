// Package bloom implements the probabilistic membership filter: a fixed-size
// bit array probed k times per key.
//
// Probe positions come from one 64-bit xxhash of the key, expanded by double
// hashing (h1 + i*h2 mod m). Bits live in 64-bit words updated with atomic
// OR, so a filter can be read while it is still being filled without tearing.
package bloom

import (
	"fmt"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// maxBits bounds the bit array at 8 GiB.
const maxBits = uint64(1) << 36

// Filter is a Bloom filter with fixed m and k.
type Filter struct {
	words     []uint64
	m         uint64
	k         uint
	capacity  uint64
	errorRate float64
}

var _ membership.Filter = (*Filter)(nil)

// NewFilter sizes a filter so that after capacity insertions a non-member
// tests positive with probability at most errorRate.
// capacity must be > 0 and errorRate must lie in (0, 1).
func NewFilter(capacity uint64, errorRate float64) (*Filter, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be greater than zero", domain.ErrInvalidParameter)
	}
	if math.IsNaN(errorRate) || errorRate <= 0 || errorRate >= 1 {
		return nil, fmt.Errorf("%w: error rate %v must be in (0, 1)", domain.ErrInvalidParameter, errorRate)
	}
	m, k := NewSizer().Size(capacity, errorRate)
	if m > maxBits {
		return nil, fmt.Errorf("%w: %d bits exceeds the %d bit limit", domain.ErrInvalidParameter, m, maxBits)
	}
	f := newWithSize(m, k)
	f.capacity = capacity
	f.errorRate = errorRate
	return f, nil
}

func newWithSize(m uint64, k uint) *Filter {
	return &Filter{
		words: make([]uint64, (m+63)/64),
		m:     m,
		k:     k,
	}
}

// Add sets the k bits for key. Bits only ever go from 0 to 1.
func (f *Filter) Add(key []byte) {
	h1, h2 := probeHashes(key)
	for i := uint64(0); i < uint64(f.k); i++ {
		pos := (h1 + i*h2) % f.m
		atomic.OrUint64(&f.words[pos>>6], 1<<(pos&63))
	}
}

// MightContain reports whether all k bits for key are set. A false result
// is definite; a true result may be a false positive.
func (f *Filter) MightContain(key []byte) bool {
	h1, h2 := probeHashes(key)
	for i := uint64(0); i < uint64(f.k); i++ {
		pos := (h1 + i*h2) % f.m
		if atomic.LoadUint64(&f.words[pos>>6])&(1<<(pos&63)) == 0 {
			return false
		}
	}
	return true
}

// Stats reports m, k, the sizing parameters and the current fill.
func (f *Filter) Stats() membership.FilterStats {
	var set uint64
	for i := range f.words {
		set += uint64(bits.OnesCount64(atomic.LoadUint64(&f.words[i])))
	}
	fill := float64(set) / float64(f.m)
	return membership.FilterStats{
		Bits:                  f.m,
		Probes:                f.k,
		Capacity:              f.capacity,
		ErrorRate:             f.errorRate,
		FillRatio:             fill,
		EstimatedFalsePosRate: math.Pow(fill, float64(f.k)),
	}
}

// probeHashes derives the double-hashing pair from one xxhash. h2 is a
// splitmix64 scramble of h1 forced odd so the stride is never zero.
func probeHashes(key []byte) (uint64, uint64) {
	h1 := xxhash.Sum64(key)
	return h1, mix64(h1) | 1
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
