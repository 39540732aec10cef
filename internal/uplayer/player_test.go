package uplayer

import (
	"testing"
	"time"

	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
)

// fakeSink is a Sink test double recording calls instead of spawning a
// real player process.
type fakeSink struct {
	loadedPath string
	playing    bool
	volume     float64
	pos        time.Duration
	onEnd      func(usink.EndReason)

	hardPaused bool
	loadCount  int
	playCount  int
	pauseCount int

	prefetchCb   func()
	prerollPath  string
	hasPreroll   bool
	promoteCount int
}

func newFakeSink() *fakeSink { return &fakeSink{volume: 1} }

func (s *fakeSink) Load(path string, playing bool) error {
	s.loadedPath = path
	s.playing = playing
	s.pos = 0
	s.loadCount++
	return nil
}
func (s *fakeSink) Play() error { s.playing = true; s.playCount++; return nil }
func (s *fakeSink) Pause() error { s.playing = false; s.pauseCount++; return nil }
func (s *fakeSink) HardPause() error {
	s.playing = false
	s.hardPaused = true
	return nil
}
func (s *fakeSink) Seek(pos time.Duration) error   { s.pos = pos; return nil }
func (s *fakeSink) SetVolume(v float64) error      { s.volume = v; return nil }
func (s *fakeSink) Timestamp() time.Duration       { return s.pos }
func (s *fakeSink) OnEnd(cb func(usink.EndReason)) { s.onEnd = cb }
func (s *fakeSink) Close() error                   { return nil }

func (s *fakeSink) OnPrefetch(threshold time.Duration, cb func()) { s.prefetchCb = cb }
func (s *fakeSink) Probe(path string) (time.Duration, error)      { return 0, nil }
func (s *fakeSink) Preroll(path string) error {
	s.prerollPath = path
	s.hasPreroll = true
	return nil
}
func (s *fakeSink) PromotePreroll(playing bool) (bool, error) {
	if !s.hasPreroll {
		return false, nil
	}
	s.hasPreroll = false
	s.loadedPath = s.prerollPath
	s.playing = playing
	s.pos = 0
	s.promoteCount++
	return true, nil
}

func buildPlayer(t *testing.T) (*Player, *fakeSink, *usong.Library, []usong.SongId) {
	t.Helper()
	lib := usong.NewLibrary()
	var songIDs []usong.SongId
	for _, title := range []string{"one", "two", "three"} {
		songIDs = append(songIDs, lib.AddPersistent(usong.Song{Title: title, Path: "/music/" + title}))
	}
	sink := newFakeSink()
	p := NewPlayer(sink, lib, 150*time.Millisecond, true)
	return p, sink, lib, songIDs
}

func TestPlayPlaylistLoadsCurrentSong(t *testing.T) {
	p, sink, _, songs := buildPlayer(t)
	pl := NewPlaylist(songs, 1)

	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.loadedPath != "/music/two" {
		t.Fatalf("sink loaded %q, want /music/two", sink.loadedPath)
	}
	if p.State() != Playing {
		t.Fatalf("state = %v, want Playing", p.State())
	}
}

func TestPlayPauseResumeRoundTrip(t *testing.T) {
	p, sink, _, songs := buildPlayer(t)
	pl := NewPlaylist(songs, 0)
	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := p.PlayPause(nil, now); err != nil {
		t.Fatal(err)
	}
	if p.State() != Paused || sink.playing {
		t.Fatalf("expected paused state after toggle")
	}

	acted, err := p.SweepHardPause(now.Add(1 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if acted {
		t.Fatalf("sweep should not act before the fade deadline")
	}

	acted, err = p.SweepHardPause(now.Add(200 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !acted || !sink.hardPaused {
		t.Fatalf("sweep should hard-pause once the deadline passes")
	}

	if err := p.PlayPause(nil, now.Add(201*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if p.State() != Playing || !sink.playing {
		t.Fatalf("resuming after hard-pause should play again")
	}
}

func TestPlayNextAdvancesAndStopsWithAliasAtEnd(t *testing.T) {
	p, _, _, songs := buildPlayer(t)
	pl := NewPlaylist(songs, 0)
	pl.OnEnd = "repeat"
	pl.HasOnEnd = true
	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}

	res, err := p.PlayNext(1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Exhausted {
		t.Fatalf("advancing within range should not be exhausted")
	}

	res, err = p.PlayNext(5)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exhausted || !res.HasAlias || res.EndAlias != "repeat" {
		t.Fatalf("got %+v, want exhausted with alias repeat", res)
	}
	if p.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", p.State())
	}
}

func TestPlayNextPastEndWithoutAlias(t *testing.T) {
	p, _, _, songs := buildPlayer(t)
	pl := NewPlaylist(songs, 2) // last song already current
	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}
	res, err := p.PlayNext(1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exhausted || res.HasAlias {
		t.Fatalf("got %+v, want exhausted with no alias", res)
	}
}

func TestPrerollPromotesOnNaturalAdvance(t *testing.T) {
	p, sink, _, songs := buildPlayer(t)
	pl := NewPlaylist(songs, 0)
	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}
	initialLoads := sink.loadCount

	p.Preroll()
	if !sink.hasPreroll || sink.prerollPath != "/music/two" {
		t.Fatalf("Preroll did not stage the next song, sink = %+v", sink)
	}

	if _, err := p.PlayNext(1); err != nil {
		t.Fatal(err)
	}
	if sink.promoteCount != 1 {
		t.Fatalf("promoteCount = %d, want 1", sink.promoteCount)
	}
	if sink.loadCount != initialLoads {
		t.Fatalf("PlayNext with a matching pre-roll should not call Load, loadCount = %d", sink.loadCount)
	}
	if sink.loadedPath != "/music/two" {
		t.Fatalf("loadedPath = %q, want /music/two", sink.loadedPath)
	}
}

func TestPrerollNoopWhenGaplessDisabled(t *testing.T) {
	lib := usong.NewLibrary()
	var songs []usong.SongId
	for _, title := range []string{"one", "two"} {
		songs = append(songs, lib.AddPersistent(usong.Song{Title: title, Path: "/music/" + title}))
	}
	sink := newFakeSink()
	p := NewPlayer(sink, lib, 150*time.Millisecond, false)
	pl := NewPlaylist(songs, 0)
	if err := p.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}

	p.Preroll()
	if sink.hasPreroll {
		t.Fatalf("Preroll should be a no-op when gapless is off")
	}
}

func TestSetVolumeAppliesSquaredCurve(t *testing.T) {
	p, sink, _, _ := buildPlayer(t)
	if err := p.SetVolume(0.5); err != nil {
		t.Fatal(err)
	}
	if sink.volume != 0.25 {
		t.Fatalf("sink volume = %v, want 0.25", sink.volume)
	}
}

func TestMuteZeroesSinkVolumeWithoutForgettingLogicalVolume(t *testing.T) {
	p, sink, _, _ := buildPlayer(t)
	v := 0.8
	if err := p.SetVolume(v); err != nil {
		t.Fatal(err)
	}
	muted := true
	if err := p.SetMute(&muted); err != nil {
		t.Fatal(err)
	}
	if sink.volume != 0 {
		t.Fatalf("sink volume should be 0 while muted, got %v", sink.volume)
	}
	unmuted := false
	if err := p.SetMute(&unmuted); err != nil {
		t.Fatal(err)
	}
	if sink.volume != v*v {
		t.Fatalf("unmuting should restore v^2, got %v", sink.volume)
	}
}

func TestPushPopPlaylistRestoresParentPosition(t *testing.T) {
	p, sink, _, songs := buildPlayer(t)
	root := NewPlaylist(songs, 0)
	if err := p.PlayPlaylist(root, true); err != nil {
		t.Fatal(err)
	}
	sink.pos = 42 * time.Second
	root.SetPlayPos(sink.pos)

	child := NewPlaylist(songs[:1], 0)
	if err := p.PushPlaylist(child, true); err != nil {
		t.Fatal(err)
	}
	if p.StackDepth() != 2 {
		t.Fatalf("expected depth 2, got %d", p.StackDepth())
	}

	if err := p.PopPlaylist(1); err != nil {
		t.Fatal(err)
	}
	if p.StackDepth() != 1 {
		t.Fatalf("expected depth 1 after pop, got %d", p.StackDepth())
	}
	if sink.pos != 42*time.Second {
		t.Fatalf("pop should seek back to the saved position, got %v", sink.pos)
	}
}

func TestPopPlaylistNeverPopsRoot(t *testing.T) {
	p, _, _, songs := buildPlayer(t)
	root := NewPlaylist(songs, 0)
	if err := p.PlayPlaylist(root, true); err != nil {
		t.Fatal(err)
	}
	if err := p.PopPlaylist(5); err != nil {
		t.Fatal(err)
	}
	if p.StackDepth() != 1 {
		t.Fatalf("root playlist must survive an over-large pop, got depth %d", p.StackDepth())
	}
}

func TestPurgeDeletedPropagatesAcrossStack(t *testing.T) {
	p, _, lib, songs := buildPlayer(t)
	root := NewPlaylist(songs, 0)
	child := NewPlaylist(songs, 1)
	if err := p.PlayPlaylist(root, true); err != nil {
		t.Fatal(err)
	}
	if err := p.PushPlaylist(child, true); err != nil {
		t.Fatal(err)
	}
	lib.Delete(songs[1])

	p.PurgeDeleted(lib)

	for _, pl := range []*Playlist{root, child} {
		for _, id := range pl.IDs() {
			if id == songs[1] {
				t.Fatalf("deleted song still present in playlist")
			}
		}
	}
}
