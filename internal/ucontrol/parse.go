package ucontrol

import (
	"strconv"
	"strings"
	"time"

	"github.com/arung-agamani/uamp/internal/uerr"
	shellwords "github.com/mattn/go-shellwords"
)

// ParseList shell-splits s (POSIX quoting rules, per spec §4.4) into
// tokens and parses each with ParseToken.
func ParseList(s string) ([]Msg, error) {
	parser := shellwords.NewParser()
	tokens, err := parser.Parse(s)
	if err != nil {
		return nil, uerr.ArgParsef("splitting message list: %v", err)
	}
	msgs := make([]Msg, 0, len(tokens))
	for _, tok := range tokens {
		m, err := ParseToken(tok)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ParseToken is a total function from a single key or key=value token to
// a Msg, matching every canonical short/long form in SPEC_FULL.md §3.
func ParseToken(tok string) (Msg, error) {
	key, value, hasValue := splitKV(tok)

	switch key {
	case "pp", "play-pause":
		if !hasValue {
			return Msg{Kind: PlayPause}, nil
		}
		switch value {
		case "play":
			return Msg{Kind: PlayPause, Bool: boolPtr(true)}, nil
		case "pause":
			return Msg{Kind: PlayPause, Bool: boolPtr(false)}, nil
		}
		return Msg{}, uerr.ArgParsef("invalid pp value %q", value)

	case "ns", "next-song":
		n, err := optUint(value, hasValue, 1)
		if err != nil {
			return Msg{}, err
		}
		return Msg{Kind: NextSong, Count: n}, nil

	case "ps", "prev-song":
		n, err := optUint(value, hasValue, 1)
		if err != nil {
			return Msg{}, err
		}
		return Msg{Kind: PrevSong, Count: n}, nil

	case "v", "volume":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || !hasValue {
			return Msg{}, uerr.ArgParsef("invalid volume value %q", value)
		}
		return Msg{Kind: SetVolume, Float: floatPtr(f)}, nil

	case "vu", "volume-up":
		return parseOptFloatMsg(VolumeUp, value, hasValue)
	case "vd", "volume-down":
		return parseOptFloatMsg(VolumeDown, value, hasValue)

	case "mute":
		if !hasValue {
			return Msg{Kind: Mute}, nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Msg{}, uerr.ArgParsef("invalid mute value %q", value)
		}
		return Msg{Kind: Mute, Bool: boolPtr(b)}, nil

	case "shuffle":
		return Msg{Kind: Shuffle}, nil

	case "pj", "playlist-jump":
		n, err := optUint(value, hasValue, 0)
		if err != nil || !hasValue {
			return Msg{}, uerr.ArgParsef("pj requires an index")
		}
		return Msg{Kind: PlaylistJump, Count: n}, nil

	case "x", "close":
		return Msg{Kind: Close}, nil

	case "load-songs":
		return Msg{Kind: LoadNewSongs}, nil

	case "st", "seek-to":
		d, err := parseSeconds(value)
		if err != nil {
			return Msg{}, err
		}
		return Msg{Kind: SeekTo, Duration: d, HasDuration: true}, nil

	case "ff", "fast-forward":
		return parseOptDurationMsg(FastForward, value, hasValue)
	case "rw", "rewind":
		return parseOptDurationMsg(Rewind, value, hasValue)

	case "al", "alias":
		if !hasValue {
			return Msg{}, uerr.ArgParsef("alias requires a name")
		}
		name, args := splitAliasArgs(value)
		return Msg{Kind: Alias, AliasName: name, AliasArgs: args}, nil

	case "sp", "set-playlist":
		if !hasValue {
			return Msg{}, uerr.ArgParsef("set-playlist requires a query")
		}
		return Msg{Kind: SetPlaylist, QueryText: value}, nil

	case "push", "push-playlist":
		if !hasValue {
			return Msg{}, uerr.ArgParsef("push-playlist requires a query")
		}
		return Msg{Kind: PushPlaylist, QueryText: value, PlayNow: true}, nil

	case "pop", "pop-playlist":
		n, err := optUint(value, hasValue, 1)
		if err != nil {
			return Msg{}, err
		}
		return Msg{Kind: PopPlaylist, Count: n}, nil

	case "tmp", "play-tmp":
		if !hasValue {
			return Msg{}, uerr.ArgParsef("play-tmp requires at least one path")
		}
		return Msg{Kind: PlayTmp, Paths: strings.Split(value, ",")}, nil

	case "end", "set-end-action":
		if !hasValue {
			return Msg{Kind: SetPlaylistEndAction, HasAliasName: false}, nil
		}
		return Msg{Kind: SetPlaylistEndAction, AliasName: value, HasAliasName: true}, nil

	case "rl", "reload":
		return Msg{Kind: Reload}, nil

	case "ap", "set-add-policy":
		if !hasValue {
			return Msg{}, uerr.ArgParsef("set-add-policy requires a policy")
		}
		p, err := ParseAddPolicy(value)
		if err != nil {
			return Msg{}, err
		}
		return Msg{Kind: SetPlaylistAddPolicy, AddPolicy: p}, nil
	}

	return Msg{}, uerr.ArgParsef("unknown control message %q", key)
}

// splitAliasArgs splits an "al=" value's comma-separated name and
// arguments, e.g. "palb,Metallica" -> ("palb", ["Metallica"]).
func splitAliasArgs(value string) (name string, args []string) {
	parts := strings.Split(value, ",")
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts[0], parts[1:]
}

func splitKV(tok string) (key, value string, hasValue bool) {
	if i := strings.IndexByte(tok, '='); i >= 0 {
		return tok[:i], tok[i+1:], true
	}
	return tok, "", false
}

func optUint(value string, hasValue bool, def uint) (uint, error) {
	if !hasValue {
		return def, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, uerr.ArgParsef("invalid count %q", value)
	}
	return uint(n), nil
}

func parseOptFloatMsg(kind Kind, value string, hasValue bool) (Msg, error) {
	if !hasValue {
		return Msg{Kind: kind}, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Msg{}, uerr.ArgParsef("invalid amount %q", value)
	}
	return Msg{Kind: kind, Float: floatPtr(f)}, nil
}

func parseOptDurationMsg(kind Kind, value string, hasValue bool) (Msg, error) {
	if !hasValue {
		return Msg{Kind: kind}, nil
	}
	d, err := parseSeconds(value)
	if err != nil {
		return Msg{}, err
	}
	return Msg{Kind: kind, Duration: d, HasDuration: true}, nil
}

// parseSeconds parses a floating-point seconds value, the "secs_f32"
// form original_source/src/core/msg.rs uses for SeekTo/FastForward/
// Rewind.
func parseSeconds(value string) (time.Duration, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, uerr.ArgParsef("invalid duration %q", value)
	}
	return time.Duration(f * float64(time.Second)), nil
}
