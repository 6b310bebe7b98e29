package membership

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/phishscreen/internal/screen/common/clock"
	logpkg "github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/normalize"
)

// ctxCheckEvery is how many inserts Load performs between context checks.
const ctxCheckEvery = 4096

// RepositoryOptions configures a Repository.
type RepositoryOptions struct {
	Sources   []CorpusSource
	Factory   FilterFactory
	Capacity  uint64  // expected corpus size; raised to the entry count when smaller
	ErrorRate float64 // target false-positive rate at Capacity
	Logger    logpkg.Logger
	Clock     clock.Clock
}

// snapshot is one fully built filter and the metadata of the load that
// produced it. It is immutable once published.
type snapshot struct {
	filter   Filter
	entries  int
	sources  []string
	loadedAt time.Time
}

// Repository owns the published membership filter. Checks read the current
// snapshot lock-free; loads build a new snapshot off to the side and swap it
// in, so a check never observes a partially populated filter.
type Repository struct {
	sources   []CorpusSource
	factory   FilterFactory
	capacity  uint64
	errorRate float64
	logger    logpkg.Logger
	clock     clock.Clock

	current atomic.Pointer[snapshot]
	loadMu  sync.Mutex // serializes Load/Reload

	reloads   atomic.Uint64
	checks    atomic.Uint64
	positives atomic.Uint64
	overrides atomic.Uint64
}

// NewRepository validates opts and returns an unloaded Repository.
func NewRepository(opts RepositoryOptions) (*Repository, error) {
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("%w: at least one corpus source is required", domain.ErrInvalidParameter)
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("%w: filter factory is required", domain.ErrInvalidParameter)
	}
	if opts.Capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be > 0", domain.ErrInvalidParameter)
	}
	if !(opts.ErrorRate > 0 && opts.ErrorRate < 1) {
		return nil, fmt.Errorf("%w: error rate %v not in (0,1)", domain.ErrInvalidParameter, opts.ErrorRate)
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Repository{
		sources:   append([]CorpusSource(nil), opts.Sources...),
		factory:   opts.Factory,
		capacity:  opts.Capacity,
		errorRate: opts.ErrorRate,
		logger:    opts.Logger,
		clock:     opts.Clock,
	}, nil
}

// Load performs the initial corpus load and publishes the filter. Calling it
// again behaves like Reload.
func (r *Repository) Load(ctx context.Context) error {
	return r.rebuild(ctx, "load")
}

// Reload rebuilds the filter from the configured sources and swaps it in.
// On failure the previously published filter stays in place.
func (r *Repository) Reload(ctx context.Context) error {
	return r.rebuild(ctx, "reload")
}

func (r *Repository) rebuild(ctx context.Context, op string) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	start := r.clock.Now()
	entries, names, err := r.readSources(ctx)
	if err != nil {
		r.logger.Error(map[string]any{"op": op, "error": err}, "corpus load failed")
		return err
	}
	if len(entries) == 0 {
		err := fmt.Errorf("%w: sources yielded no entries", domain.ErrCorpusRead)
		r.logger.Error(map[string]any{"op": op, "sources": names}, "corpus is empty")
		return err
	}

	capacity := r.capacity
	if n := uint64(len(entries)); n > capacity {
		r.logger.Warn(map[string]any{"configured": capacity, "entries": n}, "corpus exceeds configured capacity; sizing to entry count")
		capacity = n
	}
	f, err := r.factory.New(capacity, r.errorRate)
	if err != nil {
		return err
	}
	if err := Load(ctx, entries, f); err != nil {
		return err
	}

	prev := r.current.Swap(&snapshot{
		filter:   f,
		entries:  len(entries),
		sources:  names,
		loadedAt: r.clock.Now(),
	})
	if prev != nil {
		r.reloads.Add(1)
	}

	st := f.Stats()
	r.logger.Info(map[string]any{
		"op":         op,
		"entries":    len(entries),
		"sources":    names,
		"bits":       st.Bits,
		"probes":     st.Probes,
		"fill_ratio": st.FillRatio,
		"elapsed":    clock.Since(r.clock, start).String(),
	}, "membership filter published")
	return nil
}

// readSources reads every source concurrently. Results keep source order.
func (r *Repository) readSources(ctx context.Context) ([]string, []string, error) {
	results := make([][]string, len(r.sources))
	names := make([]string, len(r.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		names[i] = src.Name()
		g.Go(func() error {
			entries, err := src.Entries(gctx)
			if err != nil {
				return fmt.Errorf("%w: source %s: %w", domain.ErrCorpusRead, src.Name(), err)
			}
			r.logger.Debug(map[string]any{"source": src.Name(), "entries": len(entries)}, "corpus source read")
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	total := 0
	for _, res := range results {
		total += len(res)
	}
	all := make([]string, 0, total)
	for _, res := range results {
		all = append(all, res...)
	}
	return all, names, nil
}

// Load normalizes each entry and inserts it into f. Order does not matter and
// duplicates are harmless.
func Load(ctx context.Context, entries []string, f Filter) error {
	for i, e := range entries {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		f.Add(normalize.URL(e).Bytes())
	}
	return nil
}

// Check normalizes raw and tests it against the published filter. A positive
// result whose key is in allow is reported as not spam. Returns
// domain.ErrNotLoaded until the first load completes.
func (r *Repository) Check(raw string, allow domain.AllowList) (domain.URLCheck, error) {
	snap := r.current.Load()
	if snap == nil {
		return domain.URLCheck{}, domain.ErrNotLoaded
	}
	r.checks.Add(1)

	key := normalize.URL(raw)
	res := domain.URLCheck{NormalizedURL: key}
	if !snap.filter.MightContain(key.Bytes()) {
		return res, nil
	}
	r.positives.Add(1)
	if allow.Contains(key) {
		r.overrides.Add(1)
		res.Allowed = true
		return res, nil
	}
	res.IsPossiblySpam = true
	return res, nil
}

// Ready reports whether a filter has been published.
func (r *Repository) Ready() bool { return r.current.Load() != nil }

// Stats returns counters and the published filter's statistics.
func (r *Repository) Stats() RepoStats {
	st := RepoStats{
		Reloads:   r.reloads.Load(),
		Checks:    r.checks.Load(),
		Positives: r.positives.Load(),
		Overrides: r.overrides.Load(),
	}
	snap := r.current.Load()
	if snap == nil {
		return st
	}
	st.Loaded = true
	st.Entries = snap.entries
	st.Sources = append([]string(nil), snap.sources...)
	st.LoadedAt = snap.loadedAt
	st.Filter = snap.filter.Stats()
	return st
}
