package bloom

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/haukened/phishscreen/internal/screen/domain"
)

func keys(prefix string, n int) [][]byte {
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = []byte(fmt.Sprintf("%s-%07d.example/path/%d", prefix, i, i*7919))
	}
	return out
}

func mustFilter(t testing.TB, n uint64, p float64) *Filter {
	t.Helper()
	f, err := NewFilter(n, p)
	if err != nil {
		t.Fatalf("NewFilter(%d, %v): %v", n, p, err)
	}
	return f
}

func TestNewFilter_InvalidParameters(t *testing.T) {
	cases := []struct {
		name string
		n    uint64
		p    float64
	}{
		{"zero capacity", 0, 0.01},
		{"zero rate", 100, 0},
		{"negative rate", 100, -0.5},
		{"rate one", 100, 1},
		{"rate above one", 100, 1.5},
		{"nan rate", 100, math.NaN()},
		{"too many bits", 1 << 40, 0.01},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := NewFilter(c.n, c.p)
			if !errors.Is(err, domain.ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
			if f != nil {
				t.Fatalf("expected nil filter on error")
			}
		})
	}
}

func TestFilter_AddMightContain(t *testing.T) {
	f := mustFilter(t, 32, 0.05)

	keyA := []byte("example.com")
	if f.MightContain(keyA) {
		t.Fatalf("unexpected positive before add")
	}
	f.Add(keyA)
	if !f.MightContain(keyA) {
		t.Fatalf("expected maybe after add")
	}
	// adding again is harmless
	f.Add(keyA)
	if !f.MightContain(keyA) {
		t.Fatalf("expected maybe after duplicate add")
	}
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	params := []struct {
		n uint64
		p float64
	}{
		{1, 0.5},
		{10, 0.01},
		{1_000, 0.001},
		{5_000, 0.2},
	}
	for _, ps := range params {
		f := mustFilter(t, ps.n, ps.p)
		// insert twice the capacity to check overload keeps the guarantee
		ks := keys(fmt.Sprintf("n%d", ps.n), int(ps.n)*2)
		for _, k := range ks {
			f.Add(k)
		}
		for _, k := range ks {
			if !f.MightContain(k) {
				t.Fatalf("n=%d p=%v: false negative for %q", ps.n, ps.p, k)
			}
		}
	}
}

func TestFilter_FalsePositiveRateBounded(t *testing.T) {
	const (
		n      = 20_000
		p      = 0.01
		probes = 20_000
	)
	f := mustFilter(t, n, p)
	for _, k := range keys("present", n) {
		f.Add(k)
	}
	fp := 0
	for _, k := range keys("absent", probes) {
		if f.MightContain(k) {
			fp++
		}
	}
	rate := float64(fp) / float64(probes)
	// 1% expected; allow sampling noise up to 2%
	if rate > 2*p {
		t.Fatalf("observed false-positive rate %.4f exceeds %.4f", rate, 2*p)
	}
}

func TestFilter_FewerInsertsFewerFalsePositives(t *testing.T) {
	const n = 10_000
	full := mustFilter(t, n, 0.05)
	light := mustFilter(t, n, 0.05)
	for i, k := range keys("present", n) {
		full.Add(k)
		if i < n/10 {
			light.Add(k)
		}
	}
	var fpFull, fpLight int
	for _, k := range keys("absent", n) {
		if full.MightContain(k) {
			fpFull++
		}
		if light.MightContain(k) {
			fpLight++
		}
	}
	if fpLight >= fpFull {
		t.Fatalf("light filter fp=%d should be below full filter fp=%d", fpLight, fpFull)
	}
}

func TestFilter_Monotonic(t *testing.T) {
	f := mustFilter(t, 500, 0.1)
	probeSet := keys("probe", 2_000)
	for _, k := range keys("first", 250) {
		f.Add(k)
	}
	before := make([]bool, len(probeSet))
	for i, k := range probeSet {
		before[i] = f.MightContain(k)
	}
	for _, k := range keys("second", 1_000) {
		f.Add(k)
	}
	for i, k := range probeSet {
		if before[i] && !f.MightContain(k) {
			t.Fatalf("probe %q flipped from true to false", k)
		}
	}
}

func TestFilter_Stats(t *testing.T) {
	f := mustFilter(t, 1_000, 0.01)
	st := f.Stats()
	if st.Bits == 0 || st.Probes != 7 || st.Capacity != 1_000 || st.ErrorRate != 0.01 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.FillRatio != 0 || st.EstimatedFalsePosRate != 0 {
		t.Fatalf("empty filter should report zero fill: %+v", st)
	}
	for _, k := range keys("s", 1_000) {
		f.Add(k)
	}
	st = f.Stats()
	// at capacity roughly half the bits are set
	if st.FillRatio < 0.4 || st.FillRatio > 0.6 {
		t.Fatalf("fill ratio %.3f outside [0.4, 0.6]", st.FillRatio)
	}
	if st.EstimatedFalsePosRate > 0.02 {
		t.Fatalf("estimated fp rate %.4f too high", st.EstimatedFalsePosRate)
	}
}

func TestFilter_ConcurrentReadsDuringWrites(t *testing.T) {
	f := mustFilter(t, 256, 0.01)

	var wg sync.WaitGroup
	done := make(chan struct{})
	ks := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10_000; i++ {
			f.Add(ks[i%3])
		}
		close(done)
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = f.MightContain([]byte("probe"))
				}
			}
		}()
	}
	wg.Wait()

	for _, k := range ks {
		if !f.MightContain(k) {
			t.Fatalf("false negative for %q after concurrent adds", k)
		}
	}
}

func TestProbeHashes_StrideIsOdd(t *testing.T) {
	for _, k := range keys("h", 100) {
		h1, h2 := probeHashes(k)
		if h2%2 == 0 {
			t.Fatalf("h2 must be odd, got %d", h2)
		}
		if a, b := probeHashes(k); a != h1 || b != h2 {
			t.Fatalf("probeHashes not deterministic")
		}
	}
}
