package uloop

import "github.com/arung-agamani/uamp/internal/uevent"

// handlePrefetch stages the next song in the sink's pre-roll slot,
// invoked once per song by the sink's prefetch timer ahead of its
// (probed) natural end (spec §4.2). Not externally visible, so no
// event is published; handleSinkEnd's PlayNext(1) either consumes the
// staged pre-roll or falls back to a plain Load.
func (l *Loop) handlePrefetch() []uevent.Event {
	l.player.Preroll()
	return nil
}
