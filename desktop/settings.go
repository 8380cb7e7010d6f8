package desktop

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Settings holds the user-adjustable desktop options. An empty output root
// means "use the default at job start".
type Settings struct {
	OutputRoot string `json:"outputRoot"`
}

// DefaultSettings returns the first-launch configuration.
func DefaultSettings() Settings {
	return Settings{OutputRoot: defaultOutputRoot()}
}

// defaultOutputRoot is where stems land when no output folder was chosen.
func defaultOutputRoot() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, "separated")
}

// SettingsPath returns the on-disk location of the settings file.
func SettingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve user home")
	}
	return filepath.Join(homeDir, ".stemsep", "settings.json"), nil
}

// SettingsStore persists settings in a single JSON file on disk.
type SettingsStore struct {
	path string
}

// NewSettingsStore creates a JSON-backed settings store.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Load reads settings from disk, falling back to defaults when the file
// does not exist yet.
func (s *SettingsStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, errors.Wrap(err, "could not read settings")
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, errors.Wrapf(err, "invalid settings file %s", s.path)
	}
	return settings, nil
}

// Save writes settings as indented JSON, creating parent directories.
func (s *SettingsStore) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "could not create settings directory")
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode settings")
	}

	return os.WriteFile(s.path, data, 0o644)
}
