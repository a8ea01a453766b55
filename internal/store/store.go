// Package store provides a thin bbolt wrapper for timefilter's local data.
//
// The store holds two kinds of data: resolutions returned by Superset, which
// the resolver reads back while they are younger than the configured TTL,
// and saved ranges, which the user names and manages explicitly.
//
// Buckets:
//
//	resolutions   cached time range resolutions keyed by expression+endpoints
//	saved_ranges  named expressions
//	_meta         internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketResolutions = []byte("resolutions")
	bucketSavedRanges = []byte("saved_ranges")
	bucketInternal    = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"resolutions", "saved_ranges"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

var _ timerange.Cache = (*Store)(nil)

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketResolutions, bucketSavedRanges, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the stored schema version.
func (s *Store) SchemaVersion() (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket(bucketInternal).Get([]byte("schema_version")))
		return nil
	})
	return v, err
}

// ─── Resolutions ──────────────────────────────────────────────────────────────

// PutResolution stores a successful resolution under key. Failed
// resolutions are never written.
func (s *Store) PutResolution(key string, r timerange.ResolvedRange) error {
	if !r.OK() {
		return fmt.Errorf("refusing to cache failed resolution for %q", r.Expression)
	}
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding resolution: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResolutions).Put([]byte(key), data)
	})
}

// GetResolution retrieves a resolution by key.
// Returns (r, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetResolution(key string) (timerange.ResolvedRange, bool, error) {
	var r timerange.ResolvedRange
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketResolutions).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return timerange.ResolvedRange{}, false, err
	}
	return r, found, nil
}

// ListResolutionKeys returns all keys in the resolutions bucket that start
// with prefix. Pass "" to list all keys.
func (s *Store) ListResolutionKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketResolutions).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// PruneResolutions removes resolutions older than maxAge and returns how many
// were removed.
func (s *Store) PruneResolutions(maxAge time.Duration, now time.Time) (int, error) {
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResolutions)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r timerange.ResolvedRange
			if err := json.Unmarshal(v, &r); err != nil || now.Sub(r.ResolvedAt) >= maxAge {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// ─── Saved Ranges ─────────────────────────────────────────────────────────────

// PutSavedRange saves a named expression, stamping CreatedAt when unset.
// The frame is derived from the expression.
func (s *Store) PutSavedRange(r model.SavedRange) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("saved range name is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Frame = string(timerange.Classify(r.Expression))
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding saved range: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSavedRanges).Put([]byte(r.Name), b)
	})
}

// GetSavedRange retrieves a saved range by name.
func (s *Store) GetSavedRange(name string) (model.SavedRange, bool, error) {
	var r model.SavedRange
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSavedRanges).Get([]byte(name))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return r, false, err
	}
	return r, r.Name != "", nil
}

// ListSavedRanges returns all saved ranges sorted by name.
func (s *Store) ListSavedRanges() ([]model.SavedRange, error) {
	var ranges []model.SavedRange
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSavedRanges).ForEach(func(k, v []byte) error {
			var r model.SavedRange
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			ranges = append(ranges, r)
			return nil
		})
	})
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Name < ranges[j].Name })
	return ranges, err
}

// DeleteSavedRange removes a saved range by name. It reports whether the
// name existed.
func (s *Store) DeleteSavedRange(name string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSavedRanges)
		existed = b.Get([]byte(name)) != nil
		return b.Delete([]byte(name))
	})
	return existed, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// FileSize returns the size of the database file in bytes.
func (s *Store) FileSize() (int64, error) {
	fi, err := os.Stat(s.Path())
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}

// Compact rewrites the database into a fresh file, reclaiming the space
// left by deleted entries, and reopens it. It returns the file sizes before
// and after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.Path()
	if before, err = s.FileSize(); err != nil {
		return 0, 0, err
	}

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("opening compaction target: %w", err)
	}
	if err := bolt.Compact(dst, s.db, 1<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return 0, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		if db, reopenErr := openDB(path); reopenErr == nil {
			s.db = db
		}
		return 0, 0, fmt.Errorf("replacing db: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return 0, 0, err
	}
	s.db = db

	after, err = s.FileSize()
	return before, after, err
}
