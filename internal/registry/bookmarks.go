package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// Bookmarks are favorite remote directories saved per connection. They
// are removed together with the owning profile.

// AddBookmark appends a remote directory path to the profile's favorites.
// Adding a path twice is a no-op.
func (r *Registry) AddBookmark(id uuid.UUID, path string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		paths, err := decodeBookmarks(tx, id)
		if err != nil {
			return err
		}

		for _, p := range paths {
			if p == path {
				return nil
			}
		}
		paths = append(paths, path)

		return encodeBookmarks(tx, id, paths)
	})
}

// RemoveBookmark drops one favorite path. Missing paths are not an error.
func (r *Registry) RemoveBookmark(id uuid.UUID, path string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		paths, err := decodeBookmarks(tx, id)
		if err != nil {
			return err
		}

		kept := paths[:0]
		for _, p := range paths {
			if p != path {
				kept = append(kept, p)
			}
		}

		return encodeBookmarks(tx, id, kept)
	})
}

// Bookmarks returns the profile's favorite remote directories in insertion order.
func (r *Registry) Bookmarks(id uuid.UUID) ([]string, error) {
	var paths []string

	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		paths, err = decodeBookmarks(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

func decodeBookmarks(tx *bbolt.Tx, id uuid.UUID) ([]string, error) {
	data := tx.Bucket([]byte(bookmarksBucket)).Get([]byte(id.String()))
	if data == nil {
		return nil, nil
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmarks: %w", err)
	}

	return paths, nil
}

func encodeBookmarks(tx *bbolt.Tx, id uuid.UUID, paths []string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	return tx.Bucket([]byte(bookmarksBucket)).Put([]byte(id.String()), data)
}
