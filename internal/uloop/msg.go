package uloop

import (
	"context"
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/uquery"
	"github.com/arung-agamani/uamp/internal/usong"
)

// apply mutates core state for a single message and returns the
// broadcast events it produced. This is the one place every control
// message's semantics lives, grounded on original_source/src/core's
// per-message handlers (msg.rs's match over MsgAction).
func (l *Loop) apply(ctx context.Context, msg ucontrol.Msg) ([]uevent.Event, error) {
	switch msg.Kind {
	case ucontrol.PlayPause:
		if err := l.player.PlayPause(msg.Bool, time.Now()); err != nil {
			return nil, err
		}
		return l.playbackEvents(), nil

	case ucontrol.NextSong:
		n := 1
		if msg.Count > 0 {
			n = int(msg.Count)
		}
		res, err := l.player.PlayNext(n)
		if err != nil {
			return nil, err
		}
		events := []uevent.Event{{Kind: uevent.PlayNext, Data: l.playbackSnapshot()}}
		if res.HasAlias {
			aliasEvents, err := l.invokeAlias(ctx, res.EndAlias, nil)
			if err == nil {
				events = append(events, aliasEvents...)
			}
		}
		return events, nil

	case ucontrol.PrevSong:
		n := 1
		if msg.Count > 0 {
			n = int(msg.Count)
		}
		if err := l.player.PlayPrev(n); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.PlayNext, Data: l.playbackSnapshot()}}, nil

	case ucontrol.SetVolume:
		if msg.Float == nil {
			return nil, uerr.InvalidValuef("v= requires a value")
		}
		if err := l.player.SetVolume(clamp01(*msg.Float)); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.SetVolume, Data: l.player.Volume()}}, nil

	case ucontrol.VolumeUp:
		delta := l.conf.VolumeJump
		if msg.Float != nil {
			delta = *msg.Float
		}
		if err := l.player.SetVolume(clamp01(l.player.Volume() + delta)); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.SetVolume, Data: l.player.Volume()}}, nil

	case ucontrol.VolumeDown:
		delta := l.conf.VolumeJump
		if msg.Float != nil {
			delta = *msg.Float
		}
		if err := l.player.SetVolume(clamp01(l.player.Volume() - delta)); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.SetVolume, Data: l.player.Volume()}}, nil

	case ucontrol.Mute:
		if err := l.player.SetMute(msg.Bool); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.SetMute, Data: l.player.Mute()}}, nil

	case ucontrol.Shuffle:
		l.player.Shuffle(l.conf.ShuffleCur)
		return []uevent.Event{{Kind: uevent.SetPlaylist, Data: l.playbackSnapshot()}}, nil

	case ucontrol.PlaylistJump:
		if err := l.player.PlaylistJump(int(msg.Count)); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.PlaylistJump, Data: l.playbackSnapshot()}}, nil

	case ucontrol.Close:
		l.closing = true
		return nil, nil

	case ucontrol.LoadNewSongs:
		if l.closing {
			return nil, uerr.Invalid("the daemon is shutting down")
		}
		if err := l.startScanJob(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case ucontrol.SeekTo:
		if !msg.HasDuration {
			return nil, uerr.InvalidValuef("st= requires a duration")
		}
		if err := l.player.SeekTo(msg.Duration); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.Seek, Data: msg.Duration.Seconds()}}, nil

	case ucontrol.FastForward:
		d := l.conf.SeekJump
		if msg.HasDuration {
			d = msg.Duration
		}
		if err := l.player.SeekBy(d, true); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.Seek, Data: l.player.Timestamp().Seconds()}}, nil

	case ucontrol.Rewind:
		d := l.conf.SeekJump
		if msg.HasDuration {
			d = msg.Duration
		}
		if err := l.player.SeekBy(d, false); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.Seek, Data: l.player.Timestamp().Seconds()}}, nil

	case ucontrol.Alias:
		return l.invokeAlias(ctx, msg.AliasName, msg.AliasArgs)

	case ucontrol.SetPlaylist:
		return l.setPlaylistFromQuery(msg, false)

	case ucontrol.PushPlaylist:
		return l.setPlaylistFromQuery(msg, true)

	case ucontrol.PopPlaylist:
		n := 1
		if msg.Count > 0 {
			n = int(msg.Count)
		}
		if err := l.player.PopPlaylist(n); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.PopPlaylist, Data: l.playbackSnapshot()}}, nil

	case ucontrol.PlayTmp:
		return l.playTmp(msg.Paths, msg.PlayNow)

	case ucontrol.SetPlaylistEndAction:
		top := l.player.Top()
		if msg.HasAliasName {
			top.OnEnd, top.HasOnEnd = msg.AliasName, true
		} else {
			top.OnEnd, top.HasOnEnd = "", false
		}
		return []uevent.Event{{Kind: uevent.SetPlaylistEndAction, Data: top.OnEnd}}, nil

	case ucontrol.SetPlaylistAddPolicy:
		top := l.player.Top()
		top.AddPolicy, top.HasAddPolicy = msg.AddPolicy, true
		return []uevent.Event{{Kind: uevent.SetPlaylistAddPolicy, Data: top.AddPolicy.String()}}, nil

	case ucontrol.Reload:
		return l.reloadConfig(ctx)

	default:
		return nil, uerr.Unexpectedf("unhandled control message kind %v", msg.Kind)
	}
}

func (l *Loop) playbackEvents() []uevent.Event {
	return []uevent.Event{{Kind: uevent.Playback, Data: l.playbackSnapshot()}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// matchingIDs evaluates q against every catalogued song, in index
// order (spec §4.4's query-matching contract).
func (l *Loop) matchingIDs(q uquery.Query) []usong.SongId {
	var out []usong.SongId
	for _, id := range l.lib.AllIDs() {
		if q.Matches(l.lib.Song(id)) {
			out = append(out, id)
		}
	}
	return out
}

// setPlaylistFromQuery parses msg.QueryText, matches and (optionally)
// orders the result, and either replaces the top playlist (set-playlist)
// or pushes a new one (push-playlist), per spec §4.2/§4.4.
func (l *Loop) setPlaylistFromQuery(msg ucontrol.Msg, push bool) ([]uevent.Event, error) {
	q, order, err := uquery.Parse(msg.QueryText)
	if err != nil {
		return nil, err
	}
	ids := l.matchingIDs(q)
	if !order.IsZero() {
		cur := 0
		order.Sort(l.lib, ids, l.conf.SimpleOrder, &cur)
	}
	pl := uplayer.NewPlaylist(ids, 0)

	if push {
		if err := l.player.PushPlaylist(pl, msg.PlayNow); err != nil {
			return nil, err
		}
		return []uevent.Event{{Kind: uevent.PushPlaylist, Data: l.playbackSnapshot()}}, nil
	}
	if err := l.player.PlayPlaylist(pl, true); err != nil {
		return nil, err
	}
	return []uevent.Event{{Kind: uevent.SetPlaylist, Data: l.playbackSnapshot()}}, nil
}

// playTmp reads tags for each path, registers them as temporary songs,
// and pushes a playlist over them, per spec §4.3's temporary-song
// contract ("songs played directly from a path, not part of the
// catalogue, reclaimed once no playlist references them").
func (l *Loop) playTmp(paths []string, playNow bool) ([]uevent.Event, error) {
	ids := make([]usong.SongId, 0, len(paths))
	for _, p := range paths {
		s, err := usong.ReadSong(p)
		if err != nil {
			return nil, uerr.Wrap(uerr.IO, "reading tmp song", err)
		}
		ids = append(ids, l.lib.AddTemporary(s))
	}
	pl := uplayer.NewPlaylist(ids, 0)
	if err := l.player.PushPlaylist(pl, playNow); err != nil {
		return nil, err
	}
	return []uevent.Event{{Kind: uevent.PlayTmp, Data: l.playbackSnapshot()}}, nil
}
