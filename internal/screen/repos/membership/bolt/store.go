// Package bolt persists a URL corpus in a bbolt database so the screener can
// load it without parsing list files at startup.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

var (
	bucketURLs = []byte("urls")
	bucketMeta = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// StoreStats captures counts and import metadata for the persistent corpus.
type StoreStats struct {
	Count       uint64
	Version     uint64
	UpdatedUnix int64 // seconds since epoch
}

// Store is a bbolt-backed corpus. It is also a membership.CorpusSource.
type Store struct {
	db   *bbolt.DB
	path string
}

var _ membership.CorpusSource = (*Store)(nil)

// seams for tests
var (
	ensureBucketsFn = ensureBuckets
	deleteBucketsFn = deleteBuckets
	loadEntriesFn   = loadEntries
	writeMetaFn     = writeMeta
)

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error { return ensureBucketsFn(tx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing database without taking the write lock, so
// several readers may share one file.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o400, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Name identifies the store in logs and repository stats.
func (s *Store) Name() string { return "bolt:" + s.path }

// Entries returns every stored URL in key order. Read failures wrap
// domain.ErrCorpusRead.
func (s *Store) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketURLs)
		if b == nil {
			return nil
		}
		out = make([]string, 0, b.Stats().KeyN)
		c := b.Cursor()
		n := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
			if n%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			out = append(out, string(k))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorpusRead, s.Name(), err)
	}
	return out, nil
}

// Contains reports whether raw is stored verbatim.
func (s *Store) Contains(raw string) (bool, error) {
	var present bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketURLs); b != nil {
			present = b.Get([]byte(raw)) != nil
		}
		return nil
	})
	return present, err
}

// RebuildAll replaces the stored corpus with entries in a single transaction.
// Blank entries are skipped and duplicates collapse to one key.
func (s *Store) RebuildAll(entries []string, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteBucketsFn(tx, bucketURLs, bucketMeta); err != nil {
			return err
		}
		if err := ensureBucketsFn(tx); err != nil {
			return err
		}
		if err := loadEntriesFn(tx, entries); err != nil {
			return err
		}
		return writeMetaFn(tx, version, updatedUnix)
	})
}

// Purge removes every entry and the metadata.
func (s *Store) Purge() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteBucketsFn(tx, bucketURLs, bucketMeta); err != nil {
			return err
		}
		return ensureBucketsFn(tx)
	})
}

func (s *Store) Stats() StoreStats {
	st := StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketURLs); b != nil {
			st.Count = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

type bucketDeleter interface {
	DeleteBucket(name []byte) error
}

func ensureBuckets(tx bucketCreator) error {
	for _, name := range [][]byte{bucketURLs, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

// deleteBuckets drops the named buckets, ignoring ones that do not exist.
func deleteBuckets(tx bucketDeleter, names ...[]byte) error {
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
			return err
		}
	}
	return nil
}

func loadEntries(tx *bbolt.Tx, entries []string) error {
	b := tx.Bucket(bucketURLs)
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if err := b.Put([]byte(e), []byte{1}); err != nil {
			return err
		}
	}
	return nil
}

func writeMeta(tx *bbolt.Tx, version uint64, updatedUnix int64) error {
	b := tx.Bucket(bucketMeta)
	vbuf := make([]byte, 8)
	ubuf := make([]byte, 8)
	binary.BigEndian.PutUint64(vbuf, version)
	binary.BigEndian.PutUint64(ubuf, uint64(updatedUnix))
	if err := b.Put(keyVersion, vbuf); err != nil {
		return err
	}
	return b.Put(keyUpdated, ubuf)
}
