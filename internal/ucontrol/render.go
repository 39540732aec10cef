package ucontrol

import (
	"strconv"
	"strings"
)

// Render produces the canonical short text form of m, the one ParseToken
// accepts back unchanged (parse(render(m)) == m, spec §8).
func (m Msg) Render() string {
	switch m.Kind {
	case PlayPause:
		if m.Bool == nil {
			return "pp"
		}
		if *m.Bool {
			return "pp=play"
		}
		return "pp=pause"

	case NextSong:
		return "ns=" + uintStr(m.Count)
	case PrevSong:
		return "ps=" + uintStr(m.Count)

	case SetVolume:
		return "v=" + floatStr(*m.Float)

	case VolumeUp:
		return renderOptFloat("vu", m.Float)
	case VolumeDown:
		return renderOptFloat("vd", m.Float)

	case Mute:
		if m.Bool == nil {
			return "mute"
		}
		if *m.Bool {
			return "mute=true"
		}
		return "mute=false"

	case Shuffle:
		return "shuffle"

	case PlaylistJump:
		return "pj=" + uintStr(m.Count)

	case Close:
		return "x"

	case LoadNewSongs:
		return "load-songs"

	case SeekTo:
		return "st=" + floatStr(m.Duration.Seconds())

	case FastForward:
		return renderOptDuration("ff", m)
	case Rewind:
		return renderOptDuration("rw", m)

	case Alias:
		if len(m.AliasArgs) == 0 {
			return "al=" + m.AliasName
		}
		return "al=" + m.AliasName + "," + strings.Join(m.AliasArgs, ",")

	case SetPlaylist:
		return "sp=" + m.QueryText

	case PushPlaylist:
		return "push=" + m.QueryText

	case PopPlaylist:
		return "pop=" + uintStr(m.Count)

	case PlayTmp:
		return "tmp=" + strings.Join(m.Paths, ",")

	case SetPlaylistEndAction:
		if !m.HasAliasName {
			return "end"
		}
		return "end=" + m.AliasName

	case SetPlaylistAddPolicy:
		return "ap=" + m.AddPolicy.String()

	case Reload:
		return "rl"
	}
	return ""
}

func renderOptFloat(key string, f *float64) string {
	if f == nil {
		return key
	}
	return key + "=" + floatStr(*f)
}

func renderOptDuration(key string, m Msg) string {
	if !m.HasDuration {
		return key
	}
	return key + "=" + floatStr(m.Duration.Seconds())
}

func uintStr(n uint) string { return strconv.FormatUint(uint64(n), 10) }

func floatStr(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
