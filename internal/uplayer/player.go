package uplayer

import (
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
)

// PlaybackState is the player's state-machine position, per spec §4.2's
// diagram.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Paused
	Playing
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// AdvanceResult reports what happened after a play_next/play_prev call
// ran off the end of the top playlist.
type AdvanceResult struct {
	Exhausted  bool
	EndAlias   string
	HasAlias   bool
}

// Player owns the playlist stack (top of stack is active), the playback
// state machine, volume/mute, and the sink. Every method here assumes
// exclusive-owner-goroutine semantics (spec §5): callers must only be
// internal/uloop.
type Player struct {
	stack []*Playlist
	state PlaybackState

	volume float64 // logical [0,1]; squared before reaching the sink
	mute   bool

	sink usink.Sink
	lib  *usong.Library

	hardPauseDeadline time.Time
	hasHardPause      bool

	fadeLen time.Duration
	gapless bool

	preroll    usong.SongId
	hasPreroll bool
}

// NewPlayer creates a player with an empty top playlist and Stopped
// state.
func NewPlayer(sink usink.Sink, lib *usong.Library, fadeLen time.Duration, gapless bool) *Player {
	p := &Player{
		stack:   []*Playlist{NewPlaylist(nil, 0)},
		state:   Stopped,
		volume:  1,
		sink:    sink,
		lib:     lib,
		fadeLen: fadeLen,
		gapless: gapless,
	}
	sink.OnEnd(p.onSinkEndNoop) // replaced by uloop.Loop with a message-posting callback
	if gapless {
		sink.OnPrefetch(prefetchThreshold, p.onPrefetchNoop)
	}
	return p
}

// prefetchThreshold is how far from a song's (probed) end the sink
// arms its prefetch callback, per spec §4.2.
const prefetchThreshold = 3 * time.Second

// onSinkEndNoop is the default callback installed before uloop wires in
// its own, so a Player built outside a running loop (e.g. in tests)
// never panics on a nil callback.
func (p *Player) onSinkEndNoop(reason usink.EndReason) {}

// onPrefetchNoop mirrors onSinkEndNoop for the prefetch callback.
func (p *Player) onPrefetchNoop() {}

// SetEndCallback lets the owner (the loop) replace the sink's on-end
// callback with one that posts a message, breaking the cyclic ownership
// spec §9 calls out.
func (p *Player) SetEndCallback(cb func(usink.EndReason)) { p.sink.OnEnd(cb) }

// SetPrefetchCallback lets the owner (the loop) replace the sink's
// prefetch callback with one that posts a message, mirroring
// SetEndCallback. A no-op when gapless playback is off.
func (p *Player) SetPrefetchCallback(cb func()) {
	if p.gapless {
		p.sink.OnPrefetch(prefetchThreshold, cb)
	}
}

// Preroll stages the playlist's next song in the sink's pre-roll slot
// ahead of the current song's end (spec §4.2's prefetch contract). A
// no-op when gapless is off, a pre-roll is already staged, or there is
// no next song. Best-effort: a staging failure just leaves the next
// PlayNext(1) to fall back to a plain Load.
func (p *Player) Preroll() {
	if !p.gapless || p.hasPreroll {
		return
	}
	id, ok := p.Top().PeekNext()
	if !ok {
		return
	}
	if err := p.sink.Preroll(p.songPath(id)); err != nil {
		return
	}
	p.preroll = id
	p.hasPreroll = true
}

// Probe reports path's duration without disturbing current playback.
func (p *Player) Probe(path string) (time.Duration, error) { return p.sink.Probe(path) }

// Top returns the active (top-of-stack) playlist.
func (p *Player) Top() *Playlist { return p.stack[len(p.stack)-1] }

// Stack returns every playlist currently on the stack, bottom first.
func (p *Player) Stack() []*Playlist { return p.stack }

// State returns the current playback state.
func (p *Player) State() PlaybackState { return p.state }

// StackDepth returns the number of playlists on the stack.
func (p *Player) StackDepth() int { return len(p.stack) }

// PlayPlaylist replaces the top-of-stack playlist with pl, loading its
// current song. If pl is empty the player goes to Stopped.
func (p *Player) PlayPlaylist(pl *Playlist, play bool) error {
	p.stack[len(p.stack)-1] = pl
	return p.loadCurrent(play)
}

// PushPlaylist pushes pl onto the stack, first recording the sink's
// current timestamp as the parent's resume position when the parent has
// a current song (the parent keeps its own current index).
func (p *Player) PushPlaylist(pl *Playlist, play bool) error {
	if _, ok := p.Top().Current(); ok {
		p.Top().SetPlayPos(p.sink.Timestamp())
	}
	p.stack = append(p.stack, pl)
	return p.loadCurrent(play)
}

// PopPlaylist pops up to n playlists (clamped to depth-1, so the root
// playlist is never popped away). If the restored playlist has a saved
// resume position, it reloads paused and seeks there; otherwise the
// player stops.
func (p *Player) PopPlaylist(n int) error {
	depth := len(p.stack)
	if n > depth-1 {
		n = depth - 1
	}
	if n <= 0 {
		return nil
	}
	p.stack = p.stack[:depth-n]

	top := p.Top()
	if pos, ok := top.PopPlayPos(); ok {
		if err := p.loadCurrent(false); err != nil {
			return err
		}
		return p.SeekTo(pos)
	}
	p.state = Stopped
	return nil
}

// loadCurrent loads the top playlist's current song into the sink, or
// stops if there is none.
func (p *Player) loadCurrent(play bool) error {
	p.hasPreroll = false
	id, ok := p.Top().Current()
	if !ok {
		p.state = Stopped
		return nil
	}
	if err := p.sink.Load(p.songPath(id), play); err != nil {
		return uerr.Wrap(uerr.AudioDecode, "loading song", err)
	}
	if play {
		p.state = Playing
	} else {
		p.state = Paused
	}
	return nil
}

func (p *Player) songPath(id usong.SongId) string { return p.lib.Song(id).Path }

// PlayNext advances current by n. When it runs past the end, the caller
// (uloop) must check AdvanceResult: if HasAlias, expand and submit that
// alias; otherwise the player is already Stopped with current reset to
// 0.
func (p *Player) PlayNext(n int) (AdvanceResult, error) {
	top := p.Top()
	preroll, hadPreroll := p.preroll, p.hasPreroll
	p.hasPreroll = false

	next, ok := top.NthNext(n)
	if !ok {
		p.state = Stopped
		if top.HasOnEnd {
			return AdvanceResult{Exhausted: true, EndAlias: top.OnEnd, HasAlias: true}, nil
		}
		return AdvanceResult{Exhausted: true}, nil
	}

	playing := p.state != Stopped
	if n == 1 && hadPreroll && preroll == next {
		promoted, err := p.sink.PromotePreroll(playing)
		if err != nil {
			return AdvanceResult{}, uerr.Wrap(uerr.AudioDecode, "promoting pre-roll", err)
		}
		if promoted {
			if playing {
				p.state = Playing
			} else {
				p.state = Paused
			}
			return AdvanceResult{}, nil
		}
	}

	if err := p.loadCurrent(playing); err != nil {
		return AdvanceResult{}, err
	}
	return AdvanceResult{}, nil
}

// PlayPrev retreats current by n.
func (p *Player) PlayPrev(n int) error {
	top := p.Top()
	if _, ok := top.NthPrev(n); !ok {
		p.state = Stopped
		return nil
	}
	return p.loadCurrent(p.state != Stopped)
}

// PlaylistJump clamps i to the playlist range and jumps there; jumping
// to the already-current song restarts it from 0.
func (p *Player) PlaylistJump(i int) error {
	top := p.Top()
	cur, hadCur := top.CurrentIdx()
	if hadCur && cur == i {
		if err := p.SeekTo(0); err != nil {
			return err
		}
		return nil
	}
	if _, ok := top.JumpTo(i); !ok {
		p.state = Stopped
		return nil
	}
	return p.loadCurrent(p.state != Stopped)
}

// Shuffle shuffles the top playlist.
func (p *Player) Shuffle(preserveCurrent bool) { p.Top().Shuffle(preserveCurrent) }

// AddSongs adds songs to the top playlist per policy resolution.
func (p *Player) AddSongs(songs []usong.SongId, policy *ucontrol.AddPolicy) {
	p.Top().AddSongs(songs, policy)
}

// Timestamp returns the sink's current playback position.
func (p *Player) Timestamp() time.Duration { return p.sink.Timestamp() }

// SeekTo forwards an absolute seek to the sink.
func (p *Player) SeekTo(pos time.Duration) error {
	if err := p.sink.Seek(pos); err != nil {
		return uerr.Wrap(uerr.AudioDecode, "seeking", err)
	}
	return nil
}

// SeekBy seeks relative to the current timestamp.
func (p *Player) SeekBy(delta time.Duration, forward bool) error {
	cur := p.sink.Timestamp()
	var target time.Duration
	if forward {
		target = cur + delta
	} else {
		target = cur - delta
		if target < 0 {
			target = 0
		}
	}
	return p.SeekTo(target)
}

// Volume returns the logical (pre-square) volume in [0, inf).
func (p *Player) Volume() float64 { return p.volume }

// Mute reports whether the player is muted.
func (p *Player) Mute() bool { return p.mute }

// SetVolume applies v*v to the sink (perceptual curve, spec §4.2).
func (p *Player) SetVolume(v float64) error {
	p.volume = v
	return p.applyVolume()
}

// SetMute toggles (nil) or sets (non-nil) mute.
func (p *Player) SetMute(v *bool) error {
	if v == nil {
		p.mute = !p.mute
	} else {
		p.mute = *v
	}
	return p.applyVolume()
}

func (p *Player) applyVolume() error {
	v := p.volume * p.volume
	if p.mute {
		v = 0
	}
	if err := p.sink.SetVolume(v); err != nil {
		return uerr.Wrap(uerr.AudioDecode, "setting volume", err)
	}
	return nil
}

// PlayPause: nil toggles, non-nil sets. Arms a fade transition and, when
// pausing, records the hard-pause deadline (now + fadeLen) that
// uloop's periodic sweep later checks.
func (p *Player) PlayPause(v *bool, now time.Time) error {
	target := p.state != Playing
	if v != nil {
		target = *v
	}

	if target {
		p.hasHardPause = false
		if err := p.sink.Play(); err != nil {
			return uerr.Wrap(uerr.AudioDecode, "resuming playback", err)
		}
		p.state = Playing
		return nil
	}

	if err := p.sink.Pause(); err != nil {
		return uerr.Wrap(uerr.AudioDecode, "pausing playback", err)
	}
	p.state = Paused
	p.hardPauseDeadline = now.Add(p.fadeLen)
	p.hasHardPause = true
	return nil
}

// SweepHardPause hard-pauses the sink if a pending deadline has passed,
// called periodically by uloop. Returns true if it acted.
func (p *Player) SweepHardPause(now time.Time) (bool, error) {
	if !p.hasHardPause || now.Before(p.hardPauseDeadline) {
		return false, nil
	}
	p.hasHardPause = false
	if err := p.sink.HardPause(); err != nil {
		return false, uerr.Wrap(uerr.AudioDecode, "hard-pausing", err)
	}
	return true, nil
}

// PurgeDeleted removes tombstoned songs from every playlist on the
// stack (spec §4.2's deletion-propagation contract, invoked by uloop on
// a RemoveData library update).
func (p *Player) PurgeDeleted(lib *usong.Library) {
	for _, pl := range p.stack {
		pl.RemoveDeleted(lib)
	}
}
