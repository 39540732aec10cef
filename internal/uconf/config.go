// Package uconf implements the config store: a plain-old-data struct
// serialized to JSON, consulted by every tunable behavior of the core,
// and persisted on the same save timer as the library (spec §4.5).
package uconf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the full set of user-tunable behavior. Every field has a
// default taken from original_source/src/core/config/default.rs.
type Config struct {
	SearchPaths  []string `json:"search_paths"`
	Extensions   []string `json:"audio_extensions"`
	Recursive    bool     `json:"recursive_search"`
	ShuffleCur   bool     `json:"shuffle_current"`
	UpdateOnInit bool     `json:"update_library_on_start"`
	RemoveMissing bool    `json:"remove_missing_on_load"`

	VolumeJump    float64       `json:"volume_jump"`
	SaveTimeout   time.Duration `json:"save_timeout"`
	FadePlayPause time.Duration `json:"fade_play_pause"`
	Gapless       bool          `json:"gapless"`
	SeekJump      time.Duration `json:"seek_jump"`
	SimpleOrder   bool          `json:"simple_order"`

	ServerAddress string `json:"server_address"`
	Port          int    `json:"port"`
	EnableServer  bool   `json:"enable_server"`

	Aliases map[string]string `json:"aliases"`

	// change is set whenever a field is mutated through Set* and
	// cleared through ClearChanged after a successful save, per spec §4.5.
	change bool
}

const (
	// DefaultPort is the release-build default port (spec.md §6).
	DefaultPort = 8267
	// DebugPort is the debug-build default port (spec.md §6).
	DebugPort = 33284
)

// Default returns the config populated with original_source's
// documented defaults, then overridden by a handful of UAMP_* env vars,
// following config/config.go's env-override pattern.
func Default() *Config {
	c := &Config{
		SearchPaths:   []string{defaultMusicDir()},
		Extensions:    []string{"flac", "mp3", "m4a", "mp4", "ogg", "wav"},
		Recursive:     true,
		ShuffleCur:    true,
		UpdateOnInit:  true,
		RemoveMissing: true,
		VolumeJump:    0.025,
		SaveTimeout:   60 * time.Second,
		FadePlayPause: 150 * time.Millisecond,
		Gapless:       true,
		SeekJump:      10 * time.Second,
		SimpleOrder:   false,
		ServerAddress: "127.0.0.1",
		Port:          DefaultPortForBuild(),
		EnableServer:  true,
		Aliases:       defaultAliases(),
	}
	applyEnvOverrides(c)
	return c
}

func defaultMusicDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Music")
	}
	return "."
}

// defaultAliases ports the example aliases from
// original_source/src/core/config/default.rs's control_aliases(),
// using the `${name}` templating form spec.md describes.
func defaultAliases() map[string]string {
	return map[string]string{
		"repeat":      "pj=0 pp=play end=repeat",
		"repeat-once": "pj=0 pp=play end=",
		"endless-mix": "sp=any@rng pj=0 pp=play ap=m end=endless-mix",
		"pcont":       "pop=1 pp=play",
		"palb":        "[name]:push=alb:${name}@track pp=play end=pcont",
	}
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("UAMP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("UAMP_SERVER_ADDRESS"); v != "" {
		c.ServerAddress = v
	}
	if v := os.Getenv("UAMP_MUSIC_DIR"); v != "" {
		c.SearchPaths = []string{v}
	}
}

// Changed reports whether a field was mutated since the last save.
func (c *Config) Changed() bool { return c.change }

// ClearChanged clears the dirty flag, called after a successful save.
func (c *Config) ClearChanged() { c.change = false }

// SetVolumeJump sets the volume jump used by VolumeUp/Down when no
// explicit amount is given.
func (c *Config) SetVolumeJump(v float64) {
	c.VolumeJump = v
	c.change = true
}

// SetAlias adds or replaces a named alias body.
func (c *Config) SetAlias(name, body string) {
	if c.Aliases == nil {
		c.Aliases = make(map[string]string)
	}
	c.Aliases[name] = body
	c.change = true
}

// Reload re-reads cfg from disk via store and merges it into the
// receiver in place, preserving any runtime-only fields the caller set
// up independently of the file (spec §4.5's "merges runtime-only fields
// ... into the new value").
func (c *Config) Reload(store *Store) error {
	fresh, err := store.Load()
	if err != nil {
		return err
	}
	change := c.change
	*c = *fresh
	c.change = change
	return nil
}
