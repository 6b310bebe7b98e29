package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
)

// Classifier is the contract every adapter and wrapper in this package
// satisfies.
type Classifier interface {
	Classify(ctx context.Context, email domain.Email) (domain.Classification, error)
}

var (
	_ Classifier = (*OpenAI)(nil)
	_ Classifier = (*Gemini)(nil)
	_ Classifier = (*Guarded)(nil)
	_ Classifier = (*Cached)(nil)
)

// Guarded rate-limits calls to the wrapped classifier, bounds each call with
// a timeout, and stops calling it while it keeps failing.
type Guarded struct {
	next    Classifier
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

type GuardedOptions struct {
	Next    Classifier
	RPS     float64       // <= 0 disables rate limiting
	Burst   int           // defaults to 1
	Timeout time.Duration // per call; 0 leaves the caller's deadline alone
	Logger  log.Logger
}

func NewGuarded(opts GuardedOptions) *Guarded {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	logger := opts.Logger
	settings := gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Caller cancellations and bad verdicts are not outages.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, errBadResponse)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(map[string]any{"breaker": name, "from": from.String(), "to": to.String()}, "circuit breaker state changed")
		},
	}
	return &Guarded{
		next:    opts.Next,
		limiter: rate.NewLimiter(limit, opts.Burst),
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: opts.Timeout,
	}
}

func (g *Guarded) Classify(ctx context.Context, email domain.Email) (domain.Classification, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: rate limit: %w", domain.ErrGateway, err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Classify(ctx, email)
	})
	if err != nil {
		// Adapter errors already carry ErrGateway; breaker and context errors do not.
		if errors.Is(err, domain.ErrGateway) {
			return domain.Classification{}, err
		}
		return domain.Classification{}, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	return out.(domain.Classification), nil
}

// State reports the breaker state, for stats and tests.
func (g *Guarded) State() gobreaker.State { return g.cb.State() }
