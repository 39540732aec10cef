package usong

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dhowden/tag"
)

// ScanConfig controls how Scan walks the configured search paths,
// following spec §4.3 step 2: "Canonicalize all configured search
// paths; for each path, iterate directory entries; symlinks are
// resolved to their target; recursion is controlled by the config
// flag."
type ScanConfig struct {
	SearchPaths []string
	Extensions  []string // lowercase, without the leading dot
	Recursive   bool
}

// ScanResult mirrors spec §4.3 step 5's LibraryLoadResult, minus the
// add_policy field (that belongs to the caller, which knows the active
// playlist's policy).
type ScanResult struct {
	Songs  []Song
	Errors map[string]error
}

func extAllowed(path string, exts []string) bool {
	e := filepath.Ext(path)
	if len(e) > 0 {
		e = e[1:]
	}
	for _, allowed := range exts {
		if e == allowed {
			return true
		}
	}
	return false
}

// Scan walks every configured search path and reads tags for every file
// whose extension is allow-listed and whose path is not already in
// known (keyed by the canonical, symlink-resolved, absolute path).
// Grounded on internal/playlist/scanner.go's filepath.Walk-based
// ScanMusicDirectory, generalized for multiple roots, symlink
// resolution, and an optional non-recursive mode.
func Scan(cfg ScanConfig, known map[string]bool) ScanResult {
	result := ScanResult{Errors: make(map[string]error)}
	seen := make(map[string]bool)

	for _, root := range cfg.SearchPaths {
		canonical, err := filepath.Abs(root)
		if err != nil {
			result.Errors[root] = err
			continue
		}
		if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
			canonical = resolved
		}

		walkFn := func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				result.Errors[path] = err
				return nil // continue past per-file errors
			}
			if d.IsDir() {
				if !cfg.Recursive && path != canonical {
					return filepath.SkipDir
				}
				return nil
			}
			resolved := path
			if r, err := filepath.EvalSymlinks(path); err == nil {
				resolved = r
			}
			if seen[resolved] || known[resolved] {
				return nil
			}
			seen[resolved] = true
			if !extAllowed(resolved, cfg.Extensions) {
				return nil
			}
			song, err := readSong(resolved)
			if err != nil {
				result.Errors[resolved] = err
				return nil
			}
			result.Songs = append(result.Songs, song)
			return nil
		}

		if err := filepath.WalkDir(canonical, walkFn); err != nil {
			result.Errors[canonical] = err
		}
	}

	sort.Slice(result.Songs, func(i, j int) bool {
		return result.Songs[i].Path < result.Songs[j].Path
	})
	return result
}

// ReadSong reads tag metadata from a single file, for callers (like a
// play-tmp control message) that load one path outside of a full Scan.
func ReadSong(path string) (Song, error) { return readSong(path) }

// readSong reads tag metadata from path, following
// internal/playlist/track.go's extractTrackMetadata. Duration is left
// zero here; it is refined later once the sink probes the file (spec
// §4.3 step 3's "refine length by opening the decoder").
func readSong(path string) (Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return Song{}, err
	}
	defer f.Close()

	s := Song{Path: path}
	m, err := tag.ReadFrom(f)
	if err != nil {
		// Not every supported extension carries readable tags (e.g. a
		// bare .wav); fall back to the file name as title.
		s.Title = filepath.Base(path)
		return s, nil
	}

	s.Title = m.Title()
	s.Artist = m.Artist()
	s.Album = m.Album()
	s.Genre = m.Genre()
	s.Year = m.Year()
	track, _ := m.Track()
	s.Track = track
	disc, _ := m.Disc()
	s.Disc = disc
	if s.Title == "" {
		s.Title = filepath.Base(path)
	}
	return s, nil
}
