package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"
)

// Store keeps past diagnostic runs in a bbolt file, keyed by run
// timestamp so the newest run sorts last.
type Store struct {
	db *bbolt.DB
}

// NewStore opens the run store under ~/.sessionprobe.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".sessionprobe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return OpenStore(filepath.Join(dir, "runs.db"))
}

// OpenStore opens (or creates) a run store at an explicit path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a report under its run timestamp.
func (s *Store) Save(r Report) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		key := []byte(r.Timestamp.Format(time.RFC3339Nano))
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}

		return b.Put(key, data)
	})
}

// List returns stored reports, newest first.
func (s *Store) List() []Report {
	var items []Report

	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var r Report
			if err := json.Unmarshal(v, &r); err == nil {
				items = append(items, r)
			}
		}
		return nil
	})

	return items
}

// Get looks up a report by its run timestamp key.
func (s *Store) Get(ts time.Time) (*Report, error) {
	var r Report
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		v := b.Get([]byte(ts.Format(time.RFC3339Nano)))
		if v == nil {
			return fmt.Errorf("run not found")
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}
