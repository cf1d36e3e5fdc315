package secrets

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/romvault/romvault/internal/errors"
)

const secretsBucket = "secrets"

// BoltStore is a bbolt-backed Store that encrypts values at rest.
type BoltStore struct {
	db  *bbolt.DB
	box *cipherBox
}

// NewBoltStore opens (or creates) the secret database at dbPath. The
// passphrase protects values at rest; losing it orphans stored secrets.
func NewBoltStore(dbPath, passphrase string) (*BoltStore, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(secretsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create secrets bucket: %w", err)
	}

	return &BoltStore{db: db, box: newCipherBox(passphrase)}, nil
}

func (s *BoltStore) Save(key, value string) error {
	encrypted, err := s.box.encrypt(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(secretsBucket)).Put([]byte(key), []byte(encrypted))
	})
}

func (s *BoltStore) Get(key string) (string, error) {
	var encrypted []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(secretsBucket)).Get([]byte(key))
		if v == nil {
			return errors.ErrSecretNotFound
		}
		encrypted = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return "", err
	}

	return s.box.decrypt(string(encrypted))
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(secretsBucket)).Delete([]byte(key))
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
