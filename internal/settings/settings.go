// Package settings loads and saves the user settings file: a small JSON
// key-value blob shared with the presentation layer. Unknown files or
// files written by older versions are merged over the defaults, so new
// keys always carry a sane value.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Settings is the recognized key set.
type Settings struct {
	AutoCleanEnabled bool   `json:"auto_clean_enabled"`
	AutoCleanDays    int    `json:"auto_clean_days"`
	LastCleanDate    string `json:"last_clean_date"`
	Hotkey           string `json:"hotkey"`
}

// Defaults returns the settings applied when no file exists yet.
func Defaults() Settings {
	return Settings{
		AutoCleanEnabled: false,
		AutoCleanDays:    10,
		LastCleanDate:    "",
		Hotkey:           "ctrl+shift+v",
	}
}

// Load reads the settings at path, merging the file's keys over the
// defaults. A missing file yields the defaults without error.
func Load(path string) (Settings, error) {
	s := Defaults()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("settings read: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Defaults(), fmt.Errorf("settings parse: %w", err)
	}
	if s.AutoCleanDays <= 0 {
		s.AutoCleanDays = Defaults().AutoCleanDays
	}
	return s, nil
}

// Save writes the settings atomically (temp file + rename).
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings encode: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("settings write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("settings write: %w", err)
	}
	return nil
}
