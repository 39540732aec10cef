package uquery

import (
	"math/rand/v2"
	"sort"

	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/usong"
)

// OrderKind is the discriminant of a SongOrder, grounded on
// original_source/src/core/song_order.rs's SongOrder enum.
type OrderKind int

const (
	// OZero is the zero value: "no order requested".
	OZero OrderKind = iota
	OReverse
	ORandomize
	OPath
	OTitle
	OArtist
	OAlbum
	OTrack
	ODisc
	OYear
	OLength
	OGenre
)

// SongOrder names how a matched set of songs should be arranged.
type SongOrder struct {
	Kind OrderKind
}

func (o SongOrder) IsZero() bool { return o.Kind == OZero }

// orderTokens pairs every accepted parse synonym with its kind and
// canonical render token, taken from song_order.rs's FromStr/Display.
// Year's canonical Display form is "date", not "year" — preserved here
// as a deliberate naming quirk, not a typo.
var orderTokens = []struct {
	kind    OrderKind
	synonyms []string
	render  string
}{
	{OReverse, []string{"rev", "reverse"}, "rev"},
	{ORandomize, []string{"rng", "rand", "random", "randomize"}, "rng"},
	{OPath, []string{"path"}, "path"},
	{OTitle, []string{"title", "name"}, "title"},
	{OArtist, []string{"artist", "performer", "author"}, "artist"},
	{OAlbum, []string{"album"}, "album"},
	{OTrack, []string{"track"}, "track"},
	{ODisc, []string{"disc"}, "disc"},
	{OYear, []string{"year", "date"}, "date"},
	{OLength, []string{"len", "length"}, "len"},
	{OGenre, []string{"genre"}, "genre"},
}

func parseOrder(tok string) (SongOrder, error) {
	for _, entry := range orderTokens {
		for _, syn := range entry.synonyms {
			if tok == syn {
				return SongOrder{Kind: entry.kind}, nil
			}
		}
	}
	return SongOrder{}, uerr.ArgParsef("unknown song order %q", tok)
}

func (o SongOrder) Render() string {
	for _, entry := range orderTokens {
		if entry.kind == o.Kind {
			return entry.render
		}
	}
	return ""
}

// Sort arranges ids in place according to o. When simple is false,
// Artist/Album/Disc/Year use the tuple keys documented in
// SPEC_FULL.md §3 (complex mode); in simple mode every order uses its
// single key. cur, if non-nil, is the index into ids of the "current"
// song before sorting; it is updated in place to track that song's new
// position, mirroring original_source's sort(..., cur: Option<&mut
// usize>).
func (o SongOrder) Sort(lib *usong.Library, ids []usong.SongId, simple bool, cur *int) {
	if o.Kind == OZero || len(ids) == 0 {
		return
	}

	var curID usong.SongId
	haveCur := cur != nil && *cur >= 0 && *cur < len(ids)
	if haveCur {
		curID = ids[*cur]
	}

	switch o.Kind {
	case OReverse:
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	case ORandomize:
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	default:
		key := o.Kind
		sort.SliceStable(ids, func(i, j int) bool {
			return less(lib, ids[i], ids[j], key, simple)
		})
	}

	if haveCur {
		for i, id := range ids {
			if id == curID {
				*cur = i
				break
			}
		}
	}
}

func less(lib *usong.Library, a, b usong.SongId, key OrderKind, simple bool) bool {
	sa, sb := lib.Song(a), lib.Song(b)
	if simple {
		return simpleLess(sa, sb, key)
	}
	switch key {
	case OArtist:
		return tupleLess(
			[]any{sa.Artist, sa.Year, sa.Album, sa.Disc, sa.Track},
			[]any{sb.Artist, sb.Year, sb.Album, sb.Disc, sb.Track},
		)
	case OAlbum:
		return tupleLess(
			[]any{sa.Album, sa.Disc, sa.Track},
			[]any{sb.Album, sb.Disc, sb.Track},
		)
	case ODisc:
		return tupleLess(
			[]any{sa.Disc, sa.Album, sa.Track},
			[]any{sb.Disc, sb.Album, sb.Track},
		)
	case OYear:
		return tupleLess(
			[]any{sa.Year, sa.Album, sa.Disc, sa.Track},
			[]any{sb.Year, sb.Album, sb.Disc, sb.Track},
		)
	default:
		return simpleLess(sa, sb, key)
	}
}

func simpleLess(sa, sb usong.Song, key OrderKind) bool {
	switch key {
	case OPath:
		return sa.Path < sb.Path
	case OTitle:
		return sa.Title < sb.Title
	case OArtist:
		return sa.Artist < sb.Artist
	case OAlbum:
		return sa.Album < sb.Album
	case OTrack:
		return sa.Track < sb.Track
	case ODisc:
		return sa.Disc < sb.Disc
	case OYear:
		return sa.Year < sb.Year
	case OLength:
		return sa.Duration < sb.Duration
	case OGenre:
		return sa.Genre < sb.Genre
	default:
		return false
	}
}

// tupleLess compares two same-shaped tuples of comparable scalars
// lexicographically.
func tupleLess(a, b []any) bool {
	for i := range a {
		switch av := a[i].(type) {
		case string:
			bv := b[i].(string)
			if av != bv {
				return av < bv
			}
		case int:
			bv := b[i].(int)
			if av != bv {
				return av < bv
			}
		}
	}
	return false
}
