package bloom

import (
	"math"

	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// sizer implements membership.Sizer using the standard formulas:
//
//	m = - (n * ln p) / (ln 2)^2
//	k = (m / n) * ln 2
//
// Results are clamped to at least 1. Callers validate n and p; the sizer
// substitutes n=1 and p=0.01 for out-of-range input rather than failing.
type sizer struct{}

// NewSizer returns a membership.Sizer implementation.
func NewSizer() membership.Sizer { return sizer{} }

func (sizer) Size(n uint64, p float64) (uint64, uint) {
	if n == 0 {
		n = 1
	}
	if !(p > 0 && p < 1) {
		p = 0.01
	}
	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m == 0 {
		m = 1
	}
	k := uint(math.Max(1, math.Round((float64(m)/float64(n))*ln2)))
	return m, k
}
