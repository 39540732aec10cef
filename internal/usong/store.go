package usong

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arung-agamani/uamp/internal/uerr"
)

// storeData is the library.json wire format, per SPEC_FULL.md §6:
// {songs:[Song,...], tmp_songs:[Song,...]}.
type storeData struct {
	Songs    []Song `json:"songs"`
	TmpSongs []Song `json:"tmp_songs"`
}

// Store persists a Library to a JSON file, atomically.
type Store struct {
	path string
}

// NewStore creates a Store writing to path, creating the parent
// directory if needed (grounded on internal/playlist/store.go's
// NewStore).
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, uerr.Wrap(uerr.IO, "creating library directory", err)
	}
	return &Store{path: path}, nil
}

// Save writes l to disk via a temp file + rename, so a crash mid-write
// never corrupts the previous snapshot.
func (st *Store) Save(l *Library) error {
	data := storeData{
		Songs:    append([]Song{}, l.persistent.Slice()...),
		TmpSongs: append([]Song{}, l.temporary.Slice()...),
	}
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return uerr.Wrap(uerr.SerdeJSON, "encoding library", err)
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return uerr.Wrap(uerr.IO, "writing library", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return uerr.Wrap(uerr.IO, "finalizing library write", err)
	}
	return nil
}

// Load reads a Library from disk. A missing file is not an error: it
// yields an empty library (first-run behavior).
func (st *Store) Load() (*Library, error) {
	buf, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return NewLibrary(), nil
	}
	if err != nil {
		return nil, uerr.Wrap(uerr.IO, "reading library", err)
	}

	var data storeData
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, uerr.Wrap(uerr.SerdeJSON, "decoding library", err)
	}

	return &Library{
		persistent: NewALCVec(data.Songs),
		temporary:  NewALCVec(data.TmpSongs),
	}, nil
}
