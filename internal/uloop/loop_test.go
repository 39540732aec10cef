package uloop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uconf"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
)

type fakeSink struct {
	pos     time.Duration
	playing bool
	volume  float64
	onEnd   func(usink.EndReason)
}

func (s *fakeSink) Load(path string, playing bool) error { s.playing = playing; s.pos = 0; return nil }
func (s *fakeSink) Play() error                           { s.playing = true; return nil }
func (s *fakeSink) Pause() error                          { s.playing = false; return nil }
func (s *fakeSink) HardPause() error                      { s.playing = false; return nil }
func (s *fakeSink) Seek(pos time.Duration) error          { s.pos = pos; return nil }
func (s *fakeSink) SetVolume(v float64) error             { s.volume = v; return nil }
func (s *fakeSink) Timestamp() time.Duration              { return s.pos }
func (s *fakeSink) OnEnd(cb func(usink.EndReason))        { s.onEnd = cb }
func (s *fakeSink) OnPrefetch(threshold time.Duration, cb func()) {}
func (s *fakeSink) Probe(path string) (time.Duration, error)      { return 0, nil }
func (s *fakeSink) Preroll(path string) error                     { return nil }
func (s *fakeSink) PromotePreroll(playing bool) (bool, error)     { return false, nil }
func (s *fakeSink) Close() error                                  { return nil }

type recordingSink struct{ events []uevent.Event }

func (r *recordingSink) Publish(ev uevent.Event) { r.events = append(r.events, ev) }

func newTestLoop(t *testing.T) (*Loop, *recordingSink, []usong.SongId) {
	t.Helper()
	dir := t.TempDir()

	lib := usong.NewLibrary()
	var ids []usong.SongId
	for _, title := range []string{"one", "two", "three"} {
		ids = append(ids, lib.AddPersistent(usong.Song{Title: title, Path: filepath.Join(dir, title+".flac")}))
	}
	lib.ClearChanged()

	conf := uconf.Default()
	conf.SearchPaths = []string{dir}
	conf.UpdateOnInit = false
	conf.SaveTimeout = time.Hour
	conf.ClearChanged()

	libStore, err := usong.NewStore(filepath.Join(dir, "library.json"))
	if err != nil {
		t.Fatal(err)
	}
	confStore, err := uconf.NewStore(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	player := uplayer.NewPlayer(&fakeSink{volume: 1}, lib, conf.FadePlayPause, conf.Gapless)
	sink := &recordingSink{}
	l := New(lib, player, conf, libStore, confStore, sink)

	pl := uplayer.NewPlaylist(ids, 0)
	if err := player.PlayPlaylist(pl, true); err != nil {
		t.Fatal(err)
	}
	return l, sink, ids
}

func submitAndWait(t *testing.T, l *Loop, msgs ...ucontrol.Msg) []Result {
	t.Helper()
	reply := make(chan []Result, 1)
	l.Submit(Task{Msgs: msgs, Reply: reply})
	select {
	case res := <-reply:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("task reply timed out")
		return nil
	}
}

func TestLoopPlayPauseProducesPlaybackEvent(t *testing.T) {
	l, sink, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.PlayPause})
	if res[0].Err != nil {
		t.Fatalf("unexpected error: %v", res[0].Err)
	}

	deadline := time.After(time.Second)
	for {
		found := false
		for _, ev := range sink.events {
			if ev.Kind == uevent.Playback {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no playback event published, got %+v", sink.events)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLoopSetVolumeClampsAndEmits(t *testing.T) {
	l, sink, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	f := 2.0
	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.SetVolume, Float: &f})
	if res[0].Err != nil {
		t.Fatal(res[0].Err)
	}
	if l.player.Volume() != 1 {
		t.Fatalf("volume should clamp to 1, got %v", l.player.Volume())
	}

	deadline := time.After(time.Second)
	for {
		found := false
		for _, ev := range sink.events {
			if ev.Kind == uevent.SetVolume {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no set-volume event published, got %+v", sink.events)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLoopUnknownAliasExpandsToEmpty(t *testing.T) {
	l, _, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.Alias, AliasName: "does-not-exist"})
	if res[0].Err != nil {
		t.Fatalf("unknown alias should not error, got %v", res[0].Err)
	}
}

func TestLoopCloseSavesAndPublishesQuitting(t *testing.T) {
	l, sink, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.Close})

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not shut down after close")
	}

	found := false
	for _, ev := range sink.events {
		if ev.Kind == uevent.Quitting {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Quitting event, got %+v", sink.events)
	}
}

func TestLoopSetPlaylistMatchesQuery(t *testing.T) {
	l, _, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.SetPlaylist, QueryText: "tit:one"})
	if res[0].Err != nil {
		t.Fatal(res[0].Err)
	}
	snap := l.playbackSnapshot()
	if len(snap.Playlist.Songs) != 1 || snap.Playlist.Songs[0].Title != "one" {
		t.Fatalf("expected playlist of just 'one', got %+v", snap.Playlist.Songs)
	}
}

type fakeRestarter struct {
	addr    string
	calls   int
	failure error
}

func (r *fakeRestarter) Restart(ctx context.Context, addr string) error {
	r.calls++
	r.addr = addr
	return r.failure
}

func TestLoopReloadMergesConfigAndRestartsOnAddressChange(t *testing.T) {
	dir := t.TempDir()

	lib := usong.NewLibrary()
	conf := uconf.Default()
	conf.UpdateOnInit = false
	conf.SaveTimeout = time.Hour
	conf.ServerAddress = "127.0.0.1"
	conf.Port = 8267
	conf.ClearChanged()

	libStore, err := usong.NewStore(filepath.Join(dir, "library.json"))
	if err != nil {
		t.Fatal(err)
	}
	confPath := filepath.Join(dir, "config.json")
	confStore, err := uconf.NewStore(confPath)
	if err != nil {
		t.Fatal(err)
	}

	player := uplayer.NewPlayer(&fakeSink{volume: 1}, lib, conf.FadePlayPause, conf.Gapless)
	sink := &recordingSink{}
	l := New(lib, player, conf, libStore, confStore, sink)

	restarter := &fakeRestarter{}
	l.SetRestarter(restarter)

	// A fresh config on disk with a different port, as if the user had
	// edited config.json directly before sending rl.
	onDisk := uconf.Default()
	onDisk.ServerAddress = "127.0.0.1"
	onDisk.Port = 9999
	if err := confStore.Save(onDisk); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.Reload})
	if res[0].Err != nil {
		t.Fatal(res[0].Err)
	}
	if l.conf.Port != 9999 {
		t.Fatalf("conf.Port after reload = %d, want 9999", l.conf.Port)
	}
	if restarter.calls != 1 || restarter.addr != "127.0.0.1:9999" {
		t.Fatalf("restarter = %+v, want one call to 127.0.0.1:9999", restarter)
	}
}

func TestLoopReloadSkipsRestartWhenAddressUnchanged(t *testing.T) {
	l, _, _ := newTestLoop(t)
	restarter := &fakeRestarter{}
	l.SetRestarter(restarter)

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer func() { cancel(); <-l.Done() }()

	res := submitAndWait(t, l, ucontrol.Msg{Kind: ucontrol.Reload})
	if res[0].Err != nil {
		t.Fatal(res[0].Err)
	}
	if restarter.calls != 0 {
		t.Fatalf("restarter.calls = %d, want 0 when address/port are unchanged", restarter.calls)
	}
}

func TestStartScanJobRefusesSecondConcurrentScan(t *testing.T) {
	l, _, _ := newTestLoop(t)
	ctx := context.Background()
	if err := l.startScanJob(ctx); err != nil {
		t.Fatalf("first scan should start: %v", err)
	}
	if err := l.startScanJob(ctx); err == nil {
		t.Fatalf("second concurrent scan should be refused")
	}
	<-l.inbox // drain the first scan's result so its goroutine doesn't block forever
}
