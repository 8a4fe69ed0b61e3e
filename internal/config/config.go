// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Config represents the application configuration
type Config struct {
	DefaultURI            string    `toml:"default_uri"`
	Shell                 string    `toml:"shell"`
	Editor                string    `toml:"editor"`
	PageSize              int       `toml:"page_size"`
	QueryTimeoutSeconds   int       `toml:"query_timeout_seconds"`
	ConnectTimeoutSeconds int       `toml:"connect_timeout_seconds"`
	HistoryLimit          int       `toml:"history_limit"`
	Profiles              []Profile `toml:"profiles"`
	Theme                 Theme     `toml:"theme_colors"`
	Keys                  KeyMap    `toml:"keys"`
}

// Theme defines the color palette
type Theme struct {
	TextPrimary   string `toml:"text_primary"`
	TextSecondary string `toml:"text_secondary"`
	TextFaint     string `toml:"text_faint"`
	Accent        string `toml:"accent"`
	Success       string `toml:"success"`
	Error         string `toml:"error"`
	Highlight     string `toml:"highlight"`
	Warning       string `toml:"warning"`
	BgPrimary     string `toml:"bg_primary"`
	BgSecondary   string `toml:"bg_secondary"`
	CardBg        string `toml:"card_bg"`
}

// KeyMap defines key bindings
type KeyMap struct {
	EditQuery   []string `toml:"edit_query"`
	Rerun       []string `toml:"rerun"`
	Command     []string `toml:"command"`
	Results     []string `toml:"results"`
	Help        []string `toml:"help"`
	Quit        []string `toml:"quit"`
	Interrupt   []string `toml:"interrupt"`
	Submit      []string `toml:"submit"`
	Cancel      []string `toml:"cancel"`
	HistoryPrev []string `toml:"history_prev"`
	HistoryNext []string `toml:"history_next"`
	Complete    []string `toml:"complete"`
	RowUp       []string `toml:"row_up"`
	RowDown     []string `toml:"row_down"`
	ScrollLeft  []string `toml:"scroll_left"`
	ScrollRight []string `toml:"scroll_right"`
	NextPage    []string `toml:"next_page"`
	RowAction   []string `toml:"row_action"`
	Refresh     []string `toml:"refresh"`
	Back        []string `toml:"back"`
	Browser     []string `toml:"browser"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Shell:                 "sh",
		PageSize:              100,
		QueryTimeoutSeconds:   30,
		ConnectTimeoutSeconds: 10,
		HistoryLimit:          1000,
		Profiles:              []Profile{},
		Theme: Theme{
			// Nord Theme Defaults
			TextPrimary:   "#D8DEE9",
			TextSecondary: "#81A1C1",
			TextFaint:     "#4C566A",
			Accent:        "#88C0D0",
			Success:       "#A3BE8C",
			Error:         "#BF616A",
			Highlight:     "#8FBCBB",
			Warning:       "#D08770",
			BgPrimary:     "#2E3440",
			BgSecondary:   "#3B4252",
			CardBg:        "#434C5E",
		},
		Keys: KeyMap{
			EditQuery:   []string{"e"},
			Rerun:       []string{"r"},
			Command:     []string{":"},
			Results:     []string{"v"},
			Help:        []string{"?"},
			Quit:        []string{"q"},
			Interrupt:   []string{"ctrl+c"},
			Submit:      []string{"enter"},
			Cancel:      []string{"esc"},
			HistoryPrev: []string{"up", "ctrl+p"},
			HistoryNext: []string{"down", "ctrl+n"},
			Complete:    []string{"tab"},
			RowUp:       []string{"k", "up"},
			RowDown:     []string{"j", "down"},
			ScrollLeft:  []string{"h", "left"},
			ScrollRight: []string{"l", "right"},
			NextPage:    []string{"n", "pgdown"},
			RowAction:   []string{"enter"},
			Refresh:     []string{"r"},
			Back:        []string{"esc", "q"},
			Browser:     []string{"tab"},
		},
	}
}

// QueryTimeout returns the query timeout, zero meaning none.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the connect timeout, zero meaning none.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile("ezmongo/config.toml")
}

// MasterKeyFunc returns the key profile secrets are encrypted with.
type MasterKeyFunc func() ([]byte, error)

// Load loads the config from disk or creates default
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path, GetMasterKey)
}

// LoadFrom loads the config at path, creating it with defaults on first run.
func LoadFrom(path string, masterKey MasterKeyFunc) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: create default
		cfg := DefaultConfig()
		if err := cfg.SaveTo(path, masterKey); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Populate defaults for missing fields (migration)
	if cfg.migrate(DefaultConfig()) {
		// Persist defaults so the user can see and edit them. The in-memory
		// defaults apply even if this fails.
		_ = cfg.SaveTo(path, masterKey)
	}

	// Decrypt passwords
	key, err := masterKey()
	if err == nil {
		for i := range cfg.Profiles {
			p := &cfg.Profiles[i]
			if p.EncryptedPassword != "" {
				if decrypted, err := Decrypt(p.EncryptedPassword, key); err == nil {
					p.Password = decrypted
				}
			}
			if p.EncryptedSSHPassword != "" {
				if decrypted, err := Decrypt(p.EncryptedSSHPassword, key); err == nil {
					p.SSHPassword = decrypted
				}
			}
		}
	}

	return &cfg, nil
}

// migrate back-fills zero values from defaults and reports whether anything
// changed.
func (c *Config) migrate(defaults *Config) bool {
	updated := false
	fillInt := func(v *int, d int) {
		if *v == 0 {
			*v, updated = d, true
		}
	}
	fillString := func(v *string, d string) {
		if *v == "" {
			*v, updated = d, true
		}
	}
	fillKeys := func(v *[]string, d []string) {
		if len(*v) == 0 {
			*v, updated = d, true
		}
	}

	fillString(&c.Shell, defaults.Shell)
	fillInt(&c.PageSize, defaults.PageSize)
	fillInt(&c.QueryTimeoutSeconds, defaults.QueryTimeoutSeconds)
	fillInt(&c.ConnectTimeoutSeconds, defaults.ConnectTimeoutSeconds)
	fillInt(&c.HistoryLimit, defaults.HistoryLimit)

	if c.Theme.TextPrimary == "" {
		c.Theme, updated = defaults.Theme, true
	}

	k, d := &c.Keys, defaults.Keys
	fillKeys(&k.EditQuery, d.EditQuery)
	fillKeys(&k.Rerun, d.Rerun)
	fillKeys(&k.Command, d.Command)
	fillKeys(&k.Results, d.Results)
	fillKeys(&k.Help, d.Help)
	fillKeys(&k.Quit, d.Quit)
	fillKeys(&k.Interrupt, d.Interrupt)
	fillKeys(&k.Submit, d.Submit)
	fillKeys(&k.Cancel, d.Cancel)
	fillKeys(&k.HistoryPrev, d.HistoryPrev)
	fillKeys(&k.HistoryNext, d.HistoryNext)
	fillKeys(&k.Complete, d.Complete)
	fillKeys(&k.RowUp, d.RowUp)
	fillKeys(&k.RowDown, d.RowDown)
	fillKeys(&k.ScrollLeft, d.ScrollLeft)
	fillKeys(&k.ScrollRight, d.ScrollRight)
	fillKeys(&k.NextPage, d.NextPage)
	fillKeys(&k.RowAction, d.RowAction)
	fillKeys(&k.Refresh, d.Refresh)
	fillKeys(&k.Back, d.Back)
	fillKeys(&k.Browser, d.Browser)

	return updated
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path, GetMasterKey)
}

// SaveTo writes the config to path, encrypting profile secrets.
func (c *Config) SaveTo(path string, masterKey MasterKeyFunc) error {
	// Ensure directory exists with secure permissions
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Create/truncate file with secure permissions (owner read/write only)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Encrypt passwords before saving
	key, err := masterKey()
	if err == nil {
		for i := range c.Profiles {
			p := &c.Profiles[i]
			if p.Password != "" {
				if encrypted, err := Encrypt(p.Password, key); err == nil {
					p.EncryptedPassword = encrypted
				}
			}
			if p.SSHPassword != "" {
				if encrypted, err := Encrypt(p.SSHPassword, key); err == nil {
					p.EncryptedSSHPassword = encrypted
				}
			}
		}
	}

	return toml.NewEncoder(f).Encode(c)
}
