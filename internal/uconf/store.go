package uconf

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arung-agamani/uamp/internal/uerr"
)

// Store persists a Config to config.json via a temp-file-then-rename
// write, the same atomic pattern internal/playlist/store.go uses for
// playlists in the teacher repo.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, uerr.Wrap(uerr.IO, "creating config directory", err)
	}
	return &Store{path: path}, nil
}

// Load reads config.json, falling back to Default() if the file does
// not yet exist.
func (st *Store) Load() (*Config, error) {
	buf, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, uerr.Wrap(uerr.IO, "reading config", err)
	}
	c := Default()
	if err := json.Unmarshal(buf, c); err != nil {
		return nil, uerr.Wrap(uerr.SerdeJSON, "decoding config", err)
	}
	c.change = false
	return c, nil
}

// Save writes c to disk atomically.
func (st *Store) Save(c *Config) error {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return uerr.Wrap(uerr.SerdeJSON, "encoding config", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return uerr.Wrap(uerr.IO, "writing config", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return uerr.Wrap(uerr.IO, "finalizing config write", err)
	}
	return nil
}

// Dirs resolves the config and cache directories following platform
// convention, with a "_debug" suffix under the debug build tag so a
// debug build never clobbers a release install (spec.md §6,
// original_source/src/core/config/default.rs's split between
// default_config_dir() variants).
func Dirs() (configDir, cacheDir string, err error) {
	cfgBase, err := os.UserConfigDir()
	if err != nil {
		return "", "", uerr.Wrap(uerr.IO, "resolving user config dir", err)
	}
	cacheBase, err := os.UserCacheDir()
	if err != nil {
		return "", "", uerr.Wrap(uerr.IO, "resolving user cache dir", err)
	}
	suffix := dirSuffix()
	return filepath.Join(cfgBase, "uamp"+suffix), filepath.Join(cacheBase, "uamp"+suffix), nil
}
