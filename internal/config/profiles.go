// internal/config/profiles.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nhath/ezmongo/internal/db"
)

// Profile is a named MongoDB connection target
type Profile struct {
	Name string `toml:"name"`
	// URI is stored without its password
	URI string `toml:"uri"`
	// Password is kept in memory for usage
	Password string `toml:"-"`
	// EncryptedPassword is the one persisted in the config file
	EncryptedPassword string `toml:"password,omitempty"`

	// SSH Tunnel Configuration
	SSHHost     string `toml:"ssh_host,omitempty"`
	SSHPort     int    `toml:"ssh_port,omitempty"`
	SSHUser     string `toml:"ssh_user,omitempty"`
	SSHPassword string `toml:"-"` // In-memory
	SSHKeyPath  string `toml:"ssh_key_path,omitempty"`

	// EncryptedSSHPassword persisted in config
	EncryptedSSHPassword string `toml:"ssh_password,omitempty"`
}

// GetProfile retrieves a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile not found: %s", name)
}

// AddProfile adds a new profile. The caller saves the config.
func (c *Config) AddProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if strings.Contains(p.Name, "://") {
		return fmt.Errorf("profile name must not look like a URI: %s", p.Name)
	}
	for _, existing := range c.Profiles {
		if existing.Name == p.Name {
			return fmt.Errorf("profile already exists: %s", p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// DeleteProfile removes a profile. The caller saves the config.
func (c *Config) DeleteProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("profile not found: %s", name)
}

// ListProfiles returns all profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// ParseURI builds a profile from a connection string, moving the password
// out of the URI so it is stored encrypted.
func ParseURI(name, uri string) (Profile, error) {
	p := Profile{Name: name}
	u, err := url.Parse(uri)
	if err != nil {
		return p, err
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return p, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			p.Password = pw
			u.User = url.User(u.User.Username())
		}
	}
	p.URI = u.String()
	return p, nil
}

// ConnectionURI returns the URI with the decrypted password put back.
func (p *Profile) ConnectionURI() string {
	if p.Password == "" {
		return p.URI
	}
	u, err := url.Parse(p.URI)
	if err != nil || u.User == nil {
		return p.URI
	}
	if _, ok := u.User.Password(); ok {
		return p.URI
	}
	u.User = url.UserPassword(u.User.Username(), p.Password)
	return u.String()
}

// SSHConfig returns the tunnel settings, or nil when the profile has none.
func (p *Profile) SSHConfig(timeout time.Duration) *db.SSHConfig {
	if p.SSHHost == "" {
		return nil
	}
	return &db.SSHConfig{
		Host:     p.SSHHost,
		Port:     p.SSHPort,
		User:     p.SSHUser,
		Password: p.SSHPassword,
		KeyPath:  p.SSHKeyPath,
		Timeout:  timeout,
	}
}
