// Package registry persists the list of remote-server connection
// profiles. Profiles are stored as one ordered list under a single key;
// secrets never enter this database.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/secrets"
)

const (
	connectionsBucket = "connections"
	bookmarksBucket   = "bookmarks"
	metadataBucket    = "metadata"

	profilesKey   = "profiles"
	schemaVersion = 1
)

// Registry is the bbolt-backed store of connection profiles.
type Registry struct {
	db      *bbolt.DB
	secrets secrets.Store

	// onDelete lets the health monitor drop its cached status for a
	// profile that no longer exists.
	onDelete func(uuid.UUID)
}

// New opens (or creates) the registry database at dbPath. Deleting a
// profile also removes its secrets from secretStore.
func New(dbPath string, secretStore secrets.Store) (*Registry, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Registry{
		db:      db,
		secrets: secretStore,
	}

	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

// initialize sets up buckets and schema
func (r *Registry) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{connectionsBucket, bookmarksBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		versionBytes := []byte(fmt.Sprintf("%d", schemaVersion))
		if err := meta.Put([]byte("schema_version"), versionBytes); err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// SetDeleteHook registers a callback invoked with the id of every
// deleted profile.
func (r *Registry) SetDeleteHook(fn func(uuid.UUID)) {
	r.onDelete = fn
}

// All returns every stored profile in persisted order.
func (r *Registry) All() ([]profile.Profile, error) {
	var profiles []profile.Profile

	err := r.db.View(func(tx *bbolt.Tx) error {
		return decodeProfiles(tx, &profiles)
	})
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// Get retrieves a profile by id.
func (r *Registry) Get(id uuid.UUID) (*profile.Profile, error) {
	profiles, err := r.All()
	if err != nil {
		return nil, err
	}

	for i := range profiles {
		if profiles[i].ID == id {
			return &profiles[i], nil
		}
	}

	return nil, errors.ErrProfileNotFound
}

// Save inserts the profile, or replaces the stored version with the same
// id. UpdatedAt is bumped on every save.
func (r *Registry) Save(p *profile.Profile) error {
	if p == nil {
		return errors.New("cannot save nil profile")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	p.UpdatedAt = time.Now()

	return r.db.Update(func(tx *bbolt.Tx) error {
		var profiles []profile.Profile
		if err := decodeProfiles(tx, &profiles); err != nil {
			return err
		}

		replaced := false
		for i := range profiles {
			if profiles[i].ID == p.ID {
				profiles[i] = *p
				replaced = true
				break
			}
		}
		if !replaced {
			profiles = append(profiles, *p)
		}

		return encodeProfiles(tx, profiles)
	})
}

// Delete removes a profile along with its secrets, bookmarks, and any
// cached health status.
func (r *Registry) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("profile id cannot be empty")
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		var profiles []profile.Profile
		if err := decodeProfiles(tx, &profiles); err != nil {
			return err
		}

		kept := profiles[:0]
		found := false
		for _, p := range profiles {
			if p.ID == id {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return errors.ErrProfileNotFound
		}

		if err := tx.Bucket([]byte(bookmarksBucket)).Delete([]byte(id.String())); err != nil {
			return fmt.Errorf("failed to delete bookmarks: %w", err)
		}

		return encodeProfiles(tx, kept)
	})
	if err != nil {
		return err
	}

	if r.secrets != nil {
		if err := secrets.DeleteAll(r.secrets, id); err != nil {
			log.Warn().Err(err).Str("profile", id.String()).Msg("failed to delete credentials")
		}
	}

	if r.onDelete != nil {
		r.onDelete(id)
	}

	return nil
}

// Default returns the profile flagged as default, or nil when none is.
func (r *Registry) Default() (*profile.Profile, error) {
	profiles, err := r.All()
	if err != nil {
		return nil, err
	}

	for i := range profiles {
		if profiles[i].IsDefault {
			return &profiles[i], nil
		}
	}

	return nil, nil
}

// SetDefault flags the given profile as default and clears the flag on
// every other profile in the same transaction.
func (r *Registry) SetDefault(id uuid.UUID) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		var profiles []profile.Profile
		if err := decodeProfiles(tx, &profiles); err != nil {
			return err
		}

		found := false
		for i := range profiles {
			if profiles[i].ID == id {
				profiles[i].IsDefault = true
				profiles[i].UpdatedAt = time.Now()
				found = true
			} else if profiles[i].IsDefault {
				profiles[i].IsDefault = false
				profiles[i].UpdatedAt = time.Now()
			}
		}
		if !found {
			return errors.ErrProfileNotFound
		}

		return encodeProfiles(tx, profiles)
	})
}

// TouchLastConnected records a successful connection time for a profile.
func (r *Registry) TouchLastConnected(id uuid.UUID, at time.Time) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		var profiles []profile.Profile
		if err := decodeProfiles(tx, &profiles); err != nil {
			return err
		}

		for i := range profiles {
			if profiles[i].ID == id {
				profiles[i].LastConnected = &at
				return encodeProfiles(tx, profiles)
			}
		}

		return errors.ErrProfileNotFound
	})
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

func decodeProfiles(tx *bbolt.Tx, out *[]profile.Profile) error {
	data := tx.Bucket([]byte(connectionsBucket)).Get([]byte(profilesKey))
	if data == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal profiles: %w", err)
	}

	return nil
}

func encodeProfiles(tx *bbolt.Tx, profiles []profile.Profile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := tx.Bucket([]byte(connectionsBucket)).Put([]byte(profilesKey), data); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	return nil
}
