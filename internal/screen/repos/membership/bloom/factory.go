package bloom

import "github.com/haukened/phishscreen/internal/screen/repos/membership"

// factory implements membership.FilterFactory.
type factory struct{}

// NewFactory returns a FilterFactory that sizes filters from capacity and
// error rate.
func NewFactory() membership.FilterFactory { return factory{} }

// New constructs a Filter, failing with domain.ErrInvalidParameter on
// out-of-range parameters.
func (factory) New(capacity uint64, errorRate float64) (membership.Filter, error) {
	f, err := NewFilter(capacity, errorRate)
	if err != nil {
		return nil, err
	}
	return f, nil
}
