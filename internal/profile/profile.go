package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuthMethod selects how a connection authenticates against the remote
// file server.
type AuthMethod string

const (
	AuthPassword    AuthMethod = "password"
	AuthKey         AuthMethod = "key"
	AuthPasswordKey AuthMethod = "password+key"
)

// Status is the transient observable state of a connection.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusAuthenticating
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusAuthenticating:
		return "Authenticating"
	case StatusConnected:
		return "Connected"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Profile is a saved remote-server connection definition. The persisted
// form never contains secrets; those live in the secret store keyed by ID.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Host          string     `json:"host"`
	Port          int        `json:"port"`
	Username      string     `json:"username"`
	AuthMethod    AuthMethod `json:"authMethod"`
	RootPath      string     `json:"rootPath"`
	IsDefault     bool       `json:"isDefault"`
	LastConnected *time.Time `json:"lastConnected,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Status is display-only state maintained by the health monitor.
	// It is never persisted.
	Status Status `json:"-"`
}

// Credentials carries the secrets resolved for a profile at connect time.
type Credentials struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey string
	Passphrase string
}

// Addr returns the host:port dial address.
func (c Credentials) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// New creates a profile with a fresh identity and timestamps.
func New(name, host string, port int, username string, auth AuthMethod) *Profile {
	now := time.Now()
	return &Profile{
		ID:         uuid.New(),
		Name:       name,
		Host:       host,
		Port:       port,
		Username:   username,
		AuthMethod: auth,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks the profile fields that every operation depends on.
func (p *Profile) Validate() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("profile has no id")
	}
	if p.Host == "" {
		return fmt.Errorf("profile %s has no host", p.ID)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("profile %s has invalid port %d", p.ID, p.Port)
	}
	if p.Username == "" {
		return fmt.Errorf("profile %s has no username", p.ID)
	}
	switch p.AuthMethod {
	case AuthPassword, AuthKey, AuthPasswordKey:
	default:
		return fmt.Errorf("profile %s has unknown auth method %q", p.ID, p.AuthMethod)
	}
	return nil
}

// Addr returns the host:port dial address.
func (p *Profile) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
