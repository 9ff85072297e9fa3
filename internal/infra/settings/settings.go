// Package settings holds the user-editable preferences shared by all turns.
// The value lives in memory behind a mutex and is persisted to settings.yaml.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/styles"
	"gopkg.in/yaml.v3"
)

// DefaultCodeTheme is the highlighting theme used until the user picks another.
const DefaultCodeTheme = "monokai"

// Settings is the persisted preference set.
type Settings struct {
	CodeTheme string `yaml:"code_theme" json:"code_theme"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{CodeTheme: DefaultCodeTheme}
}

// Validate checks every field and returns a *ConfigError for the first invalid one.
func (s Settings) Validate() error {
	if _, ok := styles.Registry[strings.ToLower(s.CodeTheme)]; !ok {
		return &ConfigError{Op: "validate", Setting: "code_theme", Err: fmt.Errorf("unknown theme %q", s.CodeTheme)}
	}
	return nil
}

// ConfigError reports a failed load, save, or validation.
type ConfigError struct {
	Op      string // "load", "save", "validate"
	Path    string
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Setting != "":
		return fmt.Sprintf("settings %s: invalid value for %s: %v", e.Op, e.Setting, e.Err)
	case e.Path != "":
		return fmt.Sprintf("settings %s %s: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("settings %s: %v", e.Op, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Store is the shared settings handle. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	value Settings
}

// NewStore returns a Store holding s that persists to path. An empty path keeps it in memory only.
func NewStore(path string, s Settings) *Store {
	return &Store{path: path, value: s}
}

// Load reads path into a new Store. A missing file yields defaults with no error.
// Any other failure still returns a usable Store with defaults, together with a *ConfigError.
func Load(path string) (*Store, error) {
	st := NewStore(path, Defaults())

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, &ConfigError{Op: "load", Path: path, Err: err}
	}

	s := Defaults()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return st, &ConfigError{Op: "load", Path: path, Err: err}
	}
	if s.CodeTheme == "" {
		s.CodeTheme = DefaultCodeTheme
	}
	if err := s.Validate(); err != nil {
		return st, err
	}
	st.value = s
	return st, nil
}

// Get copies out the current settings.
func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.value
}

// CodeTheme copies out the current highlighting theme.
func (st *Store) CodeTheme() string {
	return st.Get().CodeTheme
}

// Apply validates s, persists it and makes it current. On a save failure the in-memory value is unchanged.
func (st *Store) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.path != "" {
		if err := save(st.path, s); err != nil {
			return err
		}
	}
	st.value = s
	return nil
}

func save(path string, s Settings) error {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	return nil
}
