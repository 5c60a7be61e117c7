package blob

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// RefPrefix is the public URL prefix under which stored blobs are served.
// A blob reference is RefPrefix + id.
const RefPrefix = "/uploads/"

var (
	ErrNotFound = errors.New("blob not found")
	ErrTooLarge = errors.New("blob exceeds size limit")
)

var (
	dataBucket = []byte("blob_data")
	metaBucket = []byte("blob_meta")
)

// Store persists uploaded profile images in BoltDB. It is the "store blob,
// return URL" collaborator behind registration and profile updates.
type Store struct {
	db      *bolt.DB
	maxSize int
}

type meta struct {
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Blob is a stored upload with its metadata.
type Blob struct {
	ID          string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Ref returns the public reference for a blob id.
func Ref(id string) string {
	return RefPrefix + id
}

// IDFromRef extracts the blob id from a public reference, or "" if the ref
// does not point into this store.
func IDFromRef(ref string) string {
	if len(ref) <= len(RefPrefix) || ref[:len(RefPrefix)] != RefPrefix {
		return ""
	}
	return ref[len(RefPrefix):]
}

// Open initializes the BoltDB file and ensures the buckets exist.
func Open(path string, maxSize int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(dataBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, maxSize: maxSize}, nil
}

// Put stores the payload and returns the new blob's id.
func (s *Store) Put(data []byte, contentType string) (string, error) {
	if s == nil || s.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	if s.maxSize > 0 && len(data) > s.maxSize {
		return "", ErrTooLarge
	}

	id := uuid.NewString()
	info, err := json.Marshal(meta{
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(dataBucket).Put([]byte(id), data); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(id), info)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a blob by id.
func (s *Store) Get(id string) (*Blob, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}

	var b Blob
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(dataBucket).Get([]byte(id))
		info := tx.Bucket(metaBucket).Get([]byte(id))
		if data == nil || info == nil {
			return ErrNotFound
		}
		var m meta
		if err := json.Unmarshal(info, &m); err != nil {
			return err
		}
		b = Blob{
			ID:          id,
			ContentType: m.ContentType,
			Data:        append([]byte(nil), data...),
			CreatedAt:   m.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes a blob. Missing ids are not an error.
func (s *Store) Delete(id string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(dataBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Delete([]byte(id))
	})
}

// Sweep removes blobs created before the cutoff that are not in the inUse
// set. Returns how many blobs were removed.
func (s *Store) Sweep(olderThan time.Time, inUse map[string]bool) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}

	var orphans []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).ForEach(func(k, v []byte) error {
			var m meta
			if err := json.Unmarshal(v, &m); err != nil {
				return nil
			}
			id := string(k)
			if !inUse[id] && m.CreatedAt.Before(olderThan) {
				orphans = append(orphans, id)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	for _, id := range orphans {
		if err := s.Delete(id); err != nil {
			return 0, err
		}
	}
	return len(orphans), nil
}

// Size returns the number of stored blobs.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(metaBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
