// Package ledger records which per-year artifacts of a site were already
// produced so an interrupted site can resume without re-exporting them.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketArtifacts = []byte("artifacts")

type Entry struct {
	Path       string    `json:"path"`
	ExportedAt time.Time `json:"exported_at"`
}

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArtifacts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func key(site, artifact string) []byte {
	return []byte(site + "/" + artifact)
}

// Get returns the entry recorded for the artifact, if any.
func (s *Store) Get(site, artifact string) (*Entry, bool, error) {
	var entry *Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketArtifacts).Get(key(site, artifact))
		if data == nil {
			return nil
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read ledger entry %s/%s: %w", site, artifact, err)
	}
	return entry, entry != nil, nil
}

func (s *Store) Mark(site, artifact, path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(Entry{Path: path, ExportedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketArtifacts).Put(key(site, artifact), data)
	})
}

// Forget drops every entry recorded for site.
func (s *Store) Forget(site string) error {
	prefix := []byte(site + "/")
	return s.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketArtifacts).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Artifacts lists the artifact names recorded for site in key order.
func (s *Store) Artifacts(site string) ([]string, error) {
	prefix := []byte(site + "/")
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketArtifacts).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			names = append(names, string(k[len(prefix):]))
		}
		return nil
	})
	return names, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
