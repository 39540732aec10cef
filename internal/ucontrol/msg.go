// Package ucontrol implements the control-message layer: the closed set
// of state-mutating operations, their canonical text form, and the
// alias macro-expansion mechanism (SPEC_FULL.md §3, §4.4).
package ucontrol

import "time"

// Kind discriminates a Msg. The first block is the Control
// sub-union (copy-safe simple commands); the second is the Data
// sub-union (variants that carry owned payloads, like a playlist
// query).
type Kind int

const (
	PlayPause Kind = iota
	NextSong
	PrevSong
	SetVolume
	VolumeUp
	VolumeDown
	Mute
	Shuffle
	PlaylistJump
	Close
	LoadNewSongs
	SeekTo
	FastForward
	Rewind
	Reload

	// Data variants.
	Alias
	SetPlaylist
	PushPlaylist
	PopPlaylist
	PlayTmp
	SetPlaylistEndAction
	SetPlaylistAddPolicy
)

// IsData reports whether k belongs to the Data sub-union (carries an
// owned, non-Copy payload) rather than the Control sub-union.
func (k Kind) IsData() bool { return k >= Alias }

// Msg is the closed tagged union of every control message. Not every
// field is meaningful for every Kind; see the table in SPEC_FULL.md §3
// for which fields a given Kind populates.
type Msg struct {
	Kind Kind

	// Optional[bool]: PlayPause, Mute. Nil means "toggle" (None).
	Bool *bool

	// Optional[float64]: VolumeUp/Down amount, SetVolume value.
	Float *float64

	// Count for NextSong/PrevSong/PlaylistJump/PopPlaylist.
	Count uint

	// Optional[time.Duration]: SeekTo (required), FastForward/Rewind
	// (optional amount; nil means "use configured seek jump").
	Duration    time.Duration
	HasDuration bool

	// Data payloads.
	AliasName    string   // Alias, SetPlaylistEndAction
	AliasArgs    []string // Alias's arguments, substituted into ${param} references
	HasAliasName bool     // SetPlaylistEndAction's alias is itself optional (clears on_end when absent)
	QueryText    string // SetPlaylist, PushPlaylist
	PlayNow      bool   // PushPlaylist's "play?" flag
	Paths        []string
	AddPolicy    AddPolicy
}

// boolPtr is a small helper for building literal Msg values in tests
// and aliases.
func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
