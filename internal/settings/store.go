// Package settings persists the user-editable rename settings.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/pastename/internal/naming"
)

// Settings is the persisted plugin-wide configuration.
type Settings struct {
	Template string `yaml:"template" json:"template"`
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Template, validation.Required, validation.By(func(v any) error {
			return naming.ValidateTemplate(v.(string))
		})),
	)
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{Template: naming.DefaultTemplate}
}

// Store holds the current settings and writes them back on every change.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// Open loads settings from path. A missing file yields the defaults; the file
// is only created on the first change.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: Default()}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read: %w", err)
	}

	// Templates are user data: no env expansion, unlike the app config.
	loaded := Default()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("settings: validate: %w", err)
	}
	s.current = loaded
	return s, nil
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Template returns the current rename template.
func (s *Store) Template() string {
	return s.Get().Template
}

// SetTemplate validates and persists a new template.
func (s *Store) SetTemplate(tmpl string) (Settings, error) {
	next := Settings{Template: tmpl}
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(next); err != nil {
		return Settings{}, err
	}
	s.current = next
	return next, nil
}

// save writes settings atomically. Caller holds s.mu.
func (s *Store) save(v Settings) error {
	data, err := yaml.Marshal(&v)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}
