// Package uevent defines the broadcast events the application loop
// publishes after each processed batch, and that internal/userver fans
// out to subscribed SSE clients unchanged.
package uevent

// Kind is an SSE event name. The set and spelling match the wire
// protocol exactly: clients match on these strings.
type Kind string

const (
	SetAll                  Kind = "set-all"
	SetPlaylist             Kind = "set-playlist"
	Playback                Kind = "playback"
	PlaylistJump             Kind = "playlist-jump"
	Seek                     Kind = "seek"
	Quitting                 Kind = "quitting"
	Restarting               Kind = "restarting"
	SetVolume                Kind = "set-volume"
	SetMute                  Kind = "set-mute"
	PopPlaylist              Kind = "pop-playlist"
	PopSetPlaylist           Kind = "pop-set-playlist"
	SetPlaylistAddPolicy     Kind = "set-playlist-add-policy"
	SetPlaylistEndAction     Kind = "set-playlist-end-action"
	PushPlaylist             Kind = "push-playlist"
	PushPlaylistWithCur      Kind = "push-playlist-with-cur"
	Queue                    Kind = "queue"
	PlayNext                 Kind = "play-next"
	ReorderPlaylistStack     Kind = "reorder-playlist-stack"
	PlayTmp                  Kind = "play-tmp"
	NewServer                Kind = "new-server"
)

// Event is one message on the broadcast bus. Data is marshaled to JSON
// as the SSE "data:" line; a nil Data means the event carries no data
// line at all (Quitting, Restarting).
type Event struct {
	Kind Kind
	Data any
}

// Sink receives events published by the loop. internal/userver's
// broadcaster implements this without internal/uloop needing to import
// the HTTP layer.
type Sink interface {
	Publish(ev Event)
}

// NopSink discards every event; used where no server is running (e.g.
// pure CLI invocation, or tests).
type NopSink struct{}

func (NopSink) Publish(Event) {}
