package screener

import (
	"context"

	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// MembershipRepository is the read side of the membership filter.
type MembershipRepository interface {
	Check(raw string, allow domain.AllowList) (domain.URLCheck, error)
	Ready() bool
	Stats() membership.RepoStats
}

// Classifier submits a normalized email payload to a text-classification
// service and returns its verdict.
type Classifier interface {
	Classify(ctx context.Context, email domain.Email) (domain.Classification, error)
}
