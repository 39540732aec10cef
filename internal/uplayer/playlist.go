// Package uplayer implements the player engine: the playback state
// machine and the playlist stack, following SPEC_FULL.md §4.2 and
// grounded on original_source/src/core/player/playlist.rs for the
// per-playlist operations. Every type here is mutated only from inside
// the application loop (internal/uloop) — no mutexes, matching spec §5.
package uplayer

import (
	"math/rand/v2"
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uquery"
	"github.com/arung-agamani/uamp/internal/usong"
)

// Playlist is an ordered sequence of SongId with a current index
// (possibly past-the-end, meaning "no current"), an optional resume
// position, and the two per-playlist configuration slots from spec §3.
type Playlist struct {
	songs   usong.ALCVec[usong.SongId]
	current int

	playPos    time.Duration
	hasPlayPos bool

	OnEnd        string
	HasOnEnd     bool
	AddPolicy    ucontrol.AddPolicy
	HasAddPolicy bool
}

// NewPlaylist builds a playlist from songs, clamping an out-of-range
// current index to the last song (spec.md's playlist.rs:new contract).
func NewPlaylist(songs []usong.SongId, current int) *Playlist {
	if current > len(songs) {
		current = len(songs) - 1
		if current < 0 {
			current = 0
		}
	}
	return &Playlist{songs: usong.NewALCVec(songs), current: current}
}

// Len returns the number of songs in the playlist.
func (p *Playlist) Len() int { return p.songs.Len() }

// CurrentIdx returns the current index, or false if it is past the end
// ("no current").
func (p *Playlist) CurrentIdx() (int, bool) {
	if p.current < p.songs.Len() {
		return p.current, true
	}
	return 0, false
}

// Current returns the SongId of the current song.
func (p *Playlist) Current() (usong.SongId, bool) {
	i, ok := p.CurrentIdx()
	if !ok {
		return 0, false
	}
	return p.songs.Slice()[i], true
}

// IDs returns the playlist's songs in order (read-only view).
func (p *Playlist) IDs() []usong.SongId { return p.songs.Slice() }

// CloneSongs returns a cheap, reference-counted view of the playlist's
// songs, for handing to a background consumer without copying.
func (p *Playlist) CloneSongs() usong.ALCVec[usong.SongId] { return p.songs.Clone() }

// Shuffle permutes the playlist with Fisher-Yates. When
// preserveCurrent is false the pre-shuffle current song is swapped to
// index 0 afterwards (spec §4.2's shuffle contract; §8's fair-shuffle
// property).
func (p *Playlist) Shuffle(preserveCurrent bool) {
	id, had := p.Current()
	data := p.songs.Mut()
	rand.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })

	if !had {
		return
	}
	for i, s := range data {
		if s == id {
			p.current = i
			break
		}
	}
	if !preserveCurrent {
		data[0], data[p.current] = data[p.current], data[0]
		p.current = 0
	}
}

// RemoveDeleted drops every tombstoned song from the playlist, fixing
// the current index to still point at the song that was current (spec
// §4.2's deletion-propagation contract).
func (p *Playlist) RemoveDeleted(lib *usong.Library) {
	curID, had := p.Current()

	data := p.songs.Mut()
	kept := data[:0]
	for _, id := range data {
		if !lib.Song(id).Deleted {
			kept = append(kept, id)
		}
	}
	p.songs.Splice(0, len(data), kept...)
	p.songs.Truncate(len(kept))

	if !had {
		return
	}
	for i, id := range kept {
		if id == curID {
			p.current = i
			return
		}
	}
	// The current song itself was removed: clamp to the nearest
	// surviving position.
	if p.current >= len(kept) {
		p.current = len(kept)
	}
}

// AddSongs adds songs per policy (explicit argument, else the
// playlist's own AddPolicy, else a no-op), following spec §4.2's
// add_songs contract. MixIn interleaves strictly after current,
// uniformly among the growing tail.
func (p *Playlist) AddSongs(songs []usong.SongId, policy *ucontrol.AddPolicy) {
	effective := p.AddPolicy
	if policy != nil {
		effective = *policy
	} else if !p.HasAddPolicy {
		return
	}
	if len(songs) == 0 {
		return
	}

	i := p.current + 1
	switch effective {
	case ucontrol.PolicyNone:
	case ucontrol.PolicyEnd:
		p.songs.Extend(songs...)
	case ucontrol.PolicyNext:
		p.songs.Splice(i, i, songs...)
	case ucontrol.PolicyMixIn:
		p.mixIn(i, songs)
	}
}

// mixIn inserts songs into the tail starting at i so that each new
// song's final index is > i-1 and the pre-existing tail keeps its
// relative order (spec §8's mix-in-bounds property): each new song is
// inserted at a position chosen uniformly within the tail built so far.
func (p *Playlist) mixIn(i int, songs []usong.SongId) {
	for _, s := range songs {
		tailLen := p.songs.Len() - i
		offset := 0
		if tailLen > 0 {
			offset = rand.IntN(tailLen + 1)
		}
		p.songs.Splice(i+offset, i+offset, s)
	}
}

// Sort arranges the playlist per order, tracking the current song's new
// position (spec §4.4's ordering semantics).
func (p *Playlist) Sort(lib *usong.Library, simple bool, order uquery.SongOrder) {
	data := p.songs.Mut()
	order.Sort(lib, data, simple, &p.current)
}

// PlayNext splices songs in right after the current position.
func (p *Playlist) PlayNext(songs []usong.SongId) {
	i := p.current + 1
	p.songs.Splice(i, i, songs...)
}

// PeekNext reports the song one past current without moving current,
// for staging a pre-roll slot ahead of time (spec §4.2's prefetch).
func (p *Playlist) PeekNext() (usong.SongId, bool) {
	i := p.current + 1
	if i < 0 || i >= p.songs.Len() {
		return 0, false
	}
	return p.songs.Slice()[i], true
}

// NthNext moves current forward by n and returns the song now current.
// If that lands outside the playlist, current resets to 0 and false is
// returned (spec's "playlist exhausted" signal to the player).
func (p *Playlist) NthNext(n int) (usong.SongId, bool) {
	p.current += n
	if p.current < p.songs.Len() {
		return p.Current()
	}
	p.current = 0
	return 0, false
}

// NthPrev moves current back by n, clamped to the first song.
func (p *Playlist) NthPrev(n int) (usong.SongId, bool) {
	target := p.current - n
	if target < 0 {
		target = 0
	}
	return p.JumpTo(target)
}

// JumpTo clamps index to the playlist range and moves current there.
func (p *Playlist) JumpTo(index int) (usong.SongId, bool) {
	last := p.songs.Len() - 1
	if last < 0 {
		p.current = 0
		return 0, false
	}
	if index < 0 {
		index = 0
	}
	if index > last {
		index = last
	}
	p.current = index
	return p.Current()
}

// SetPlayPos stores a resume position within the current song.
func (p *Playlist) SetPlayPos(d time.Duration) {
	p.playPos = d
	p.hasPlayPos = true
}

// PopPlayPos returns and clears the stored resume position.
func (p *Playlist) PopPlayPos() (time.Duration, bool) {
	d, ok := p.playPos, p.hasPlayPos
	p.hasPlayPos = false
	return d, ok
}

// PopCurrent removes the current song from the playlist and returns it;
// current is left pointing at the following song (now at the same
// index).
func (p *Playlist) PopCurrent() (usong.SongId, bool) {
	i, ok := p.CurrentIdx()
	if !ok {
		return 0, false
	}
	id := p.songs.Slice()[i]
	p.songs.Splice(i, i+1)
	return id, true
}

// Flatten inserts other's songs at the receiver's current position
// (or the end, if the receiver has no current), retaining whichever
// song was current in other.
func (p *Playlist) Flatten(other *Playlist) {
	pos := p.songs.Len()
	if i, ok := p.CurrentIdx(); ok {
		pos = i
	}
	otherCur, otherHad := other.CurrentIdx()

	p.songs.Splice(pos, pos, other.songs.Slice()...)
	if otherHad {
		p.current = otherCur + pos
	} else {
		p.current = p.songs.Len()
	}
	p.playPos, p.hasPlayPos = other.playPos, other.hasPlayPos
}
