package uquery

import (
	"strconv"
	"strings"

	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/usong"
)

// FilterKind is the discriminant of a single field match, grounded on
// original_source/src/core/query/filter.rs's FilterType.
type FilterKind int

const (
	FAny FilterKind = iota
	FNone
	FAnyName
	FTitle
	FArtist
	FAlbum
	FTrack
	FDisc
	FYear
	FGenre
)

// Filter is one leaf of a Query: a field and the value it must match.
// Str is used by the string-valued fields; Num by the numeric ones
// (Track, Disc, Year).
type Filter struct {
	Kind FilterKind
	Str  string
	Num  int

	normalized string // precomputed Normalize(Str), set by prepare
}

// prepare precomputes the normalized comparison string once, mirroring
// filter.rs's Filter::prepare.
func (f *Filter) prepare() {
	f.normalized = Normalize(f.Str)
}

// Matches reports whether song satisfies the filter.
func (f Filter) Matches(s usong.Song) bool {
	switch f.Kind {
	case FAny:
		return true
	case FNone:
		return false
	case FAnyName:
		return strings.Contains(Normalize(s.Title), f.normalized) ||
			strings.Contains(Normalize(s.Artist), f.normalized) ||
			strings.Contains(Normalize(s.Album), f.normalized)
	case FTitle:
		return strings.Contains(Normalize(s.Title), f.normalized)
	case FArtist:
		return strings.Contains(Normalize(s.Artist), f.normalized)
	case FAlbum:
		return strings.Contains(Normalize(s.Album), f.normalized)
	case FGenre:
		return strings.Contains(Normalize(s.Genre), f.normalized)
	case FTrack:
		return s.Track == f.Num
	case FDisc:
		return s.Disc == f.Num
	case FYear:
		return s.Year == f.Num
	default:
		return false
	}
}

// filterPrefixes lists every canonical short/long key for each field,
// taken verbatim from original_source/src/core/query/filter.rs's
// starts_any! macro invocations. Order matters: longer/more specific
// prefixes must be tried before shorter ones that could otherwise
// shadow them (none currently collide, but the list mirrors source
// order).
var filterPrefixes = []struct {
	kind     FilterKind
	prefixes []string
}{
	{FAnyName, []string{"an:", "any-name:"}},
	{FTitle, []string{"tit:", "title:", "name:"}},
	{FArtist, []string{"art:", "artist:", "performer:", "auth:", "author:"}},
	{FAlbum, []string{"alb:", "album:"}},
	{FTrack, []string{"trk:", "track-number:", "track:"}},
	{FDisc, []string{"disc:"}},
	{FYear, []string{"y:", "year:"}},
	{FGenre, []string{"g:", "genre:"}},
}

// parseFilter parses a single, already-unescaped filter token (no
// surrounding brackets, '.' or '+').
func parseFilter(tok string) (Filter, error) {
	switch tok {
	case "any":
		return Filter{Kind: FAny}, nil
	case "none":
		return Filter{Kind: FNone}, nil
	}

	for _, entry := range filterPrefixes {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(tok, prefix) {
				value := tok[len(prefix):]
				f := Filter{Kind: entry.kind}
				switch entry.kind {
				case FTrack, FDisc, FYear:
					n, err := strconv.Atoi(value)
					if err != nil {
						return Filter{}, uerr.ArgParsef("invalid numeric filter value %q", value)
					}
					f.Num = n
				default:
					f.Str = value
					f.prepare()
				}
				return f, nil
			}
		}
	}
	return Filter{}, uerr.ArgParsef("unknown filter %q", tok)
}

// canonicalPrefix returns the short canonical form used when rendering.
func (f Filter) canonicalPrefix() string {
	switch f.Kind {
	case FAnyName:
		return "an:"
	case FTitle:
		return "tit:"
	case FArtist:
		return "art:"
	case FAlbum:
		return "alb:"
	case FTrack:
		return "trk:"
	case FDisc:
		return "disc:"
	case FYear:
		return "y:"
	case FGenre:
		return "g:"
	default:
		return ""
	}
}

// render emits the canonical text form for f. A string value that
// contains '/' or a reserved character ('.', '+', '[', ']', '@') is
// quoted inside /.../ with each literal '/' doubled to '//', so that
// readFilterToken reads it back unchanged.
func (f Filter) render() string {
	switch f.Kind {
	case FAny:
		return "any"
	case FNone:
		return "none"
	case FTrack, FDisc, FYear:
		return f.canonicalPrefix() + strconv.Itoa(f.Num)
	default:
		v := f.Str
		if strings.ContainsAny(v, "/.+[]@") {
			v = "/" + strings.ReplaceAll(v, "/", "//") + "/"
		}
		return f.canonicalPrefix() + v
	}
}
