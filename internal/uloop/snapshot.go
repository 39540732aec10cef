package uloop

import (
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/usong"
)

// SongInfo is the JSON-facing view of a song, used in playlist
// snapshots and /api/req responses.
type SongInfo struct {
	Id       usong.SongId `json:"id"`
	Title    string       `json:"title"`
	Artist   string       `json:"artist"`
	Album    string       `json:"album"`
	Track    int          `json:"track"`
	Disc     int          `json:"disc"`
	Year     int          `json:"year"`
	Genre    string       `json:"genre"`
	Duration float64      `json:"duration_secs"`
}

func songInfo(lib *usong.Library, id usong.SongId) SongInfo {
	s := lib.Song(id)
	return SongInfo{
		Id: id, Title: s.Title, Artist: s.Artist, Album: s.Album,
		Track: s.Track, Disc: s.Disc, Year: s.Year, Genre: s.Genre,
		Duration: s.Duration.Seconds(),
	}
}

// PlaylistSnapshot is one playlist on the stack, rendered for a client.
type PlaylistSnapshot struct {
	Songs        []SongInfo `json:"songs"`
	Current      int        `json:"current"`
	HasCurrent   bool       `json:"has_current"`
	OnEnd        string     `json:"on_end,omitempty"`
	HasOnEnd     bool       `json:"has_on_end"`
	AddPolicy    string     `json:"add_policy,omitempty"`
	HasAddPolicy bool       `json:"has_add_policy"`
}

func (l *Loop) playlistSnapshot(pl *uplayer.Playlist) PlaylistSnapshot {
	ids := pl.IDs()
	songs := make([]SongInfo, len(ids))
	for i, id := range ids {
		songs[i] = songInfo(l.lib, id)
	}
	idx, ok := pl.CurrentIdx()
	snap := PlaylistSnapshot{
		Songs: songs, Current: idx, HasCurrent: ok,
		OnEnd: pl.OnEnd, HasOnEnd: pl.HasOnEnd, HasAddPolicy: pl.HasAddPolicy,
	}
	if pl.HasAddPolicy {
		snap.AddPolicy = pl.AddPolicy.String()
	}
	return snap
}

// PlaybackSnapshot is the full playback state broadcast after most
// control messages, and returned to a freshly subscribed client as
// "set-all".
type PlaybackSnapshot struct {
	State      string             `json:"state"`
	Volume     float64            `json:"volume"`
	Mute       bool               `json:"mute"`
	PositionS  float64            `json:"position_secs"`
	StackDepth int                `json:"stack_depth"`
	Playlist   PlaylistSnapshot   `json:"playlist"`
	Stack      []PlaylistSnapshot `json:"stack"`
}

func (l *Loop) playbackSnapshot() PlaybackSnapshot {
	stack := l.player.Stack()
	stackSnap := make([]PlaylistSnapshot, len(stack))
	for i, pl := range stack {
		stackSnap[i] = l.playlistSnapshot(pl)
	}
	return PlaybackSnapshot{
		State:      l.player.State().String(),
		Volume:     l.player.Volume(),
		Mute:       l.player.Mute(),
		PositionS:  l.player.Timestamp().Seconds(),
		StackDepth: l.player.StackDepth(),
		Playlist:   l.playlistSnapshot(l.player.Top()),
		Stack:      stackSnap,
	}
}
