package secrets

import (
	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/profile"
)

// Resolve looks up the secrets a profile's authentication kind requires
// and returns ready-to-use credentials. A missing required secret is an
// invalid-credentials precondition failure; no network I/O has happened
// yet when this fails.
func Resolve(s Store, p *profile.Profile) (profile.Credentials, error) {
	creds := profile.Credentials{
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
	}

	needsPassword := p.AuthMethod == profile.AuthPassword || p.AuthMethod == profile.AuthPasswordKey
	needsKey := p.AuthMethod == profile.AuthKey || p.AuthMethod == profile.AuthPasswordKey

	if needsPassword {
		password, err := s.Get(Key(p.ID, KindPassword))
		if err != nil || password == "" {
			return profile.Credentials{}, errors.NewCredentialsError(errors.New("password is required"), p.Addr())
		}
		creds.Password = password
	}

	if needsKey {
		key, err := s.Get(Key(p.ID, KindPrivateKey))
		if err != nil || key == "" {
			return profile.Credentials{}, errors.NewCredentialsError(errors.New("private key is required"), p.Addr())
		}
		creds.PrivateKey = key

		// The passphrase is optional; unencrypted keys have none.
		if passphrase, err := s.Get(Key(p.ID, KindPassphrase)); err == nil {
			creds.Passphrase = passphrase
		}
	}

	return creds, nil
}
