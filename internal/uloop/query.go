package uloop

import (
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/uquery"
	"github.com/arung-agamani/uamp/internal/usong"
)

// Version is the daemon version reported by Info, grounded on
// original_source/src/core/messenger/info_msg.rs's Info.version field.
const Version = "0.1.0"

// Info is the now-playing snapshot plus surrounding songs returned by
// an `nfo` request (spec §4.6/§6), grounded on
// original_source/src/core/messenger/info_msg.rs's Info struct.
type Info struct {
	Version     string       `json:"version"`
	NowPlaying  *usong.Song  `json:"now_playing"`
	PlaylistLen int          `json:"playlist_len"`
	PlaylistPos *int         `json:"playlist_pos"`
	IsPlaying   bool         `json:"is_playing"`
	Timestamp   *float64     `json:"timestamp"`
	Before      []usong.Song `json:"before"`
	After       []usong.Song `json:"after"`
}

// readQuery is a closure scheduled to run inside the loop goroutine and
// a channel carrying its single result back out, the read-only
// counterpart to Task/Result: apply() mutates state from a batch,
// readQuery observes it without mutating anything.
type readQuery struct {
	fn    func() any
	reply chan any
}

// RunSync schedules fn to run on the loop goroutine and blocks until it
// returns, handing the result back. Safe to call from any goroutine
// (internal/userver's request handlers use it for /api/req), since fn
// itself only touches loop-owned state from inside the loop.
func (l *Loop) RunSync(fn func() any) any {
	q := &readQuery{fn: fn, reply: make(chan any, 1)}
	l.inbox <- envelope{query: q}
	return <-q.reply
}

// Info returns the now-playing snapshot, with up to `before` songs
// preceding and `after` songs following the current one in the active
// playlist.
func (l *Loop) Info(before, after int) Info {
	return l.RunSync(func() any { return l.info(before, after) }).(Info)
}

func (l *Loop) info(before, after int) Info {
	top := l.player.Top()
	ids := top.IDs()
	inf := Info{
		Version:     Version,
		PlaylistLen: len(ids),
		IsPlaying:   l.player.State() == uplayer.Playing,
	}

	cur, hasCur := top.CurrentIdx()
	if !hasCur {
		return inf
	}

	pos := cur
	inf.PlaylistPos = &pos
	song := l.lib.Song(ids[cur])
	inf.NowPlaying = &song
	ts := l.player.Timestamp().Seconds()
	inf.Timestamp = &ts

	start := cur - before
	if start < 0 {
		start = 0
	}
	for i := start; i < cur; i++ {
		inf.Before = append(inf.Before, l.lib.Song(ids[i]))
	}

	end := cur + after
	if end > len(ids)-1 {
		end = len(ids) - 1
	}
	for i := cur + 1; i <= end; i++ {
		inf.After = append(inf.After, l.lib.Song(ids[i]))
	}
	return inf
}

type songListResult struct {
	songs []usong.Song
	err   error
}

// QuerySongs materializes every catalogued song matching text, ordered
// per its trailing "@order" clause if present (spec §4.4's Query
// request variant).
func (l *Loop) QuerySongs(text string) ([]usong.Song, error) {
	r := l.RunSync(func() any {
		q, order, err := uquery.Parse(text)
		if err != nil {
			return songListResult{err: err}
		}
		ids := l.matchingIDs(q)
		if !order.IsZero() {
			cur := 0
			order.Sort(l.lib, ids, l.conf.SimpleOrder, &cur)
		}
		songs := make([]usong.Song, len(ids))
		for i, id := range ids {
			songs[i] = l.lib.Song(id)
		}
		return songListResult{songs: songs}
	}).(songListResult)
	return r.songs, r.err
}
