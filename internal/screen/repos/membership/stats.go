package membership

import "time"

// FilterStats describes a filter's fixed parameters and current fill.
type FilterStats struct {
	Bits                  uint64  // m
	Probes                uint    // k
	Capacity              uint64  // n the filter was sized for
	ErrorRate             float64 // target false-positive rate at Capacity
	FillRatio             float64 // fraction of bits set
	EstimatedFalsePosRate float64 // FillRatio^k
}

// RepoStats exposes repository-level counters and the published snapshot.
// Counter values are best-effort snapshots and may move concurrently.
type RepoStats struct {
	Loaded    bool
	Entries   int       // corpus entries inserted into the published filter
	Sources   []string  // names of the sources the filter was built from
	LoadedAt  time.Time // publish time of the current filter
	Reloads   uint64    // successful publishes after the first
	Checks    uint64
	Positives uint64 // filter positives, before the allow-list
	Overrides uint64 // positives cleared by the allow-list
	Filter    FilterStats
}
