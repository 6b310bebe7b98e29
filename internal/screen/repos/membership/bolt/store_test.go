package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"
)

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "corpus.db")
}

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(tempDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type assertErr struct{}

func (assertErr) Error() string { return "assert error" }

func TestStore_RebuildAndEntries(t *testing.T) {
	st := newStore(t)

	got, err := st.Entries(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("empty store: got=%v err=%v", got, err)
	}

	now := time.Now().Unix()
	in := []string{"http://www.Example.com/phish/", "bad.test", "  ", "bad.test", " spaced.test "}
	if err := st.RebuildAll(in, 7, now); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}

	got, err = st.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := []string{"bad.test", "http://www.Example.com/phish/", "spaced.test"}
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	s := st.Stats()
	if s.Count != 3 || s.Version != 7 || s.UpdatedUnix != now {
		t.Fatalf("unexpected stats: %+v", s)
	}

	// A second rebuild replaces rather than merges.
	if err := st.RebuildAll([]string{"only.test"}, 8, now+1); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	if ok, _ := st.Contains("bad.test"); ok {
		t.Fatalf("bad.test should be gone after rebuild")
	}
	if ok, _ := st.Contains("only.test"); !ok {
		t.Fatalf("only.test missing after rebuild")
	}
	if s := st.Stats(); s.Count != 1 || s.Version != 8 {
		t.Fatalf("unexpected stats after second rebuild: %+v", s)
	}
}

func TestStore_Purge(t *testing.T) {
	st := newStore(t)
	if err := st.RebuildAll([]string{"a.test"}, 1, 1); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	if err := st.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if s := st.Stats(); s.Count != 0 || s.Version != 0 || s.UpdatedUnix != 0 {
		t.Fatalf("expected zero stats after purge: %+v", s)
	}
}

func TestStore_NameAndCancelledContext(t *testing.T) {
	p := tempDB(t)
	st, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer st.Close()
	if st.Name() != "bolt:"+p {
		t.Fatalf("Name() = %q", st.Name())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.Entries(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	p := tempDB(t)
	st, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.RebuildAll([]string{"a.test", "b.test"}, 3, 99); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := OpenReadOnly(p)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()
	got, err := ro.Entries(context.Background())
	if err != nil || len(got) != 2 {
		t.Fatalf("read-only entries: got=%v err=%v", got, err)
	}
	if err := ro.RebuildAll([]string{"c.test"}, 4, 100); err == nil {
		t.Fatalf("expected write on read-only store to fail")
	}
}

func TestNew_OpenError(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "no-such-dir", "corpus.db")
	if st, err := New(bad); err == nil || st != nil {
		t.Fatalf("expected New to fail when parent directory does not exist")
	}
	if st, err := OpenReadOnly(bad); err == nil || st != nil {
		t.Fatalf("expected OpenReadOnly to fail for missing file")
	}
}

func TestNew_EnsureBucketsError(t *testing.T) {
	old := ensureBucketsFn
	ensureBucketsFn = func(bucketCreator) error { return assertErr{} }
	defer func() { ensureBucketsFn = old }()

	if st, err := New(tempDB(t)); err == nil || st != nil {
		t.Fatalf("expected New to fail when bucket creation fails")
	}
}

type fakeBucketCreator struct{ fail string }

func (f fakeBucketCreator) CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error) {
	if string(name) == f.fail {
		return nil, assertErr{}
	}
	return nil, nil
}

func TestEnsureBuckets(t *testing.T) {
	for _, fail := range []string{"", string(bucketURLs), string(bucketMeta)} {
		err := ensureBuckets(fakeBucketCreator{fail: fail})
		if (err != nil) != (fail != "") {
			t.Errorf("fail=%q: err=%v", fail, err)
		}
	}
}

type bucketDeleterFunc func(name []byte) error

func (f bucketDeleterFunc) DeleteBucket(name []byte) error { return f(name) }

func TestDeleteBuckets(t *testing.T) {
	tests := []struct {
		name    string
		errs    map[string]error
		wantErr bool
	}{
		{"all deleted", nil, false},
		{"ignore not found", map[string]error{"a": bberrors.ErrBucketNotFound}, false},
		{"first fails", map[string]error{"a": assertErr{}}, true},
		{"second fails", map[string]error{"b": assertErr{}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			del := bucketDeleterFunc(func(name []byte) error { return tc.errs[string(name)] })
			err := deleteBuckets(del, []byte("a"), []byte("b"))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRebuildAll_ErrorPaths(t *testing.T) {
	st := newStore(t)
	entries := []string{"a.test"}

	oldDel := deleteBucketsFn
	deleteBucketsFn = func(bucketDeleter, ...[]byte) error { return assertErr{} }
	if err := st.RebuildAll(entries, 1, 1); err == nil {
		t.Fatalf("expected rebuild to fail on deleteBuckets error")
	}
	if err := st.Purge(); err == nil {
		t.Fatalf("expected purge to fail on deleteBuckets error")
	}
	deleteBucketsFn = oldDel

	oldEns := ensureBucketsFn
	ensureBucketsFn = func(bucketCreator) error { return assertErr{} }
	if err := st.RebuildAll(entries, 1, 1); err == nil {
		t.Fatalf("expected rebuild to fail on ensureBuckets error")
	}
	if err := st.Purge(); err == nil {
		t.Fatalf("expected purge to fail on ensureBuckets error")
	}
	ensureBucketsFn = oldEns

	oldLoad := loadEntriesFn
	loadEntriesFn = func(*bbolt.Tx, []string) error { return assertErr{} }
	if err := st.RebuildAll(entries, 1, 1); err == nil {
		t.Fatalf("expected rebuild to fail on loadEntries error")
	}
	loadEntriesFn = oldLoad

	oldMeta := writeMetaFn
	writeMetaFn = func(*bbolt.Tx, uint64, int64) error { return assertErr{} }
	if err := st.RebuildAll(entries, 1, 1); err == nil {
		t.Fatalf("expected rebuild to fail on writeMeta error")
	}
	writeMetaFn = oldMeta

	// Failed transactions roll back, so the store is still empty.
	if s := st.Stats(); s.Count != 0 {
		t.Fatalf("expected rollback to leave store empty, got %+v", s)
	}
}

func TestEntries_MissingBucket(t *testing.T) {
	st := newStore(t)
	if err := st.db.Update(func(tx *bbolt.Tx) error { return tx.DeleteBucket(bucketURLs) }); err != nil {
		t.Fatalf("delete bucket: %v", err)
	}
	got, err := st.Entries(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result with no bucket: got=%v err=%v", got, err)
	}
	if ok, err := st.Contains("a.test"); ok || err != nil {
		t.Fatalf("Contains with no bucket: ok=%v err=%v", ok, err)
	}
}
