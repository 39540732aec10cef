// Package usink implements the audio sink: the one piece spec.md §1
// explicitly treats as an external collaborator
// ("load(file), play/pause, seek, volume, timestamp(), on_end_callback")
// but that this repository still ships a concrete, running
// implementation of, grounded on internal/ffmpeg/encoder.go's
// exec.CommandContext pattern.
package usink

import "time"

// EndReason tells the on-end callback why playback of a song stopped.
type EndReason int

const (
	EndNatural EndReason = iota // the song played to completion
	EndError                    // the child process failed
)

// Sink is the minimal contract the player engine drives. Load replaces
// the currently loaded song (if any); Play/Pause/Seek/Volume act on
// whatever is loaded. OnEnd is called exactly once per Load, from a
// goroutine other than the caller's — callers must not mutate
// player-owned state directly from inside the callback (spec §9's
// "Cyclic ownership... broken by having the sink callback post a
// message into the loop").
type Sink interface {
	// Load starts decoding path. playing selects whether playback
	// begins immediately (true) or the sink loads in a paused state
	// (false), matching Player.playPlaylist's "set playback to Playing
	// if play, else Paused".
	Load(path string, playing bool) error

	// Play resumes playback of the loaded song.
	Play() error
	// Pause suspends playback without releasing the device.
	Pause() error
	// HardPause releases the underlying audio device entirely, so idle
	// playback consumes no CPU (spec §4.2's "hard-pause deadline").
	HardPause() error

	// Seek jumps to an absolute position within the loaded song.
	Seek(pos time.Duration) error

	// SetVolume applies a linear [0,1] gain (the player has already
	// squared the logical volume before calling this).
	SetVolume(v float64) error

	// Timestamp returns the current playback position.
	Timestamp() time.Duration

	// OnEnd registers the callback invoked when the loaded song ends,
	// replacing any previously registered callback.
	OnEnd(cb func(reason EndReason))

	// OnPrefetch registers a callback fired once per Load, threshold
	// before the loaded song's (probed) end, so the caller can stage a
	// pre-roll ahead of time. A zero threshold disables prefetch
	// entirely.
	OnPrefetch(threshold time.Duration, cb func())

	// Probe decodes just enough of path to report its duration, without
	// disturbing whatever is currently loaded (spec §4.3's "refine
	// length by opening the decoder").
	Probe(path string) (time.Duration, error)

	// Preroll stages path for imminent playback in a pre-roll slot,
	// without disturbing whatever song is currently loaded (spec §4.2's
	// prefetch contract). Only one pre-roll may be staged at a time;
	// staging a new one discards any previous, unpromoted one.
	Preroll(path string) error

	// PromotePreroll switches playback to the song most recently staged
	// via Preroll. It reports false, with no error, if no pre-roll is
	// staged, so the caller can fall back to a plain Load.
	PromotePreroll(playing bool) (bool, error)

	// Close releases the sink's resources.
	Close() error
}
