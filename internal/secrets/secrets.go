package secrets

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/romvault/romvault/internal/errors"
)

// Kind identifies which secret of a connection is being addressed.
type Kind string

const (
	KindPassword   Kind = "password"
	KindPrivateKey Kind = "privateKey"
	KindPassphrase Kind = "passphrase"
)

// Store is opaque per-connection secret storage. Implementations are
// expected to keep values out of any other persisted form.
type Store interface {
	Save(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Key builds the storage key for a connection's secret.
func Key(id uuid.UUID, kind Kind) string {
	return fmt.Sprintf("%s_%s", id, kind)
}

// DeleteAll removes every secret kind for a connection. Missing entries
// are not an error.
func DeleteAll(s Store, id uuid.UUID) error {
	for _, kind := range []Kind{KindPassword, KindPrivateKey, KindPassphrase} {
		if err := s.Delete(Key(id, kind)); err != nil && !errors.Is(err, errors.ErrSecretNotFound) {
			return err
		}
	}
	return nil
}

// Memory is an in-memory Store for tests.
type Memory struct {
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Save(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *Memory) Get(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.ErrSecretNotFound
	}
	return v, nil
}

func (m *Memory) Delete(key string) error {
	delete(m.values, key)
	return nil
}
