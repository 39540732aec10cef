package ucontrol

import "github.com/arung-agamani/uamp/internal/uerr"

// AddPolicy controls where newly added songs land in a playlist,
// grounded on original_source/src/core/player/add_policy.rs.
type AddPolicy int

const (
	PolicyNone AddPolicy = iota
	PolicyEnd
	PolicyNext
	PolicyMixIn
)

// String renders the canonical single-character form.
func (p AddPolicy) String() string {
	switch p {
	case PolicyEnd:
		return "e"
	case PolicyNext:
		return "n"
	case PolicyMixIn:
		return "m"
	default:
		return "-"
	}
}

// ParseAddPolicy accepts both the canonical single-character form and
// the long synonyms from add_policy.rs's FromStr.
func ParseAddPolicy(s string) (AddPolicy, error) {
	switch s {
	case "-", "none":
		return PolicyNone, nil
	case "e", "end":
		return PolicyEnd, nil
	case "n", "next":
		return PolicyNext, nil
	case "m", "mix", "mix-in":
		return PolicyMixIn, nil
	default:
		return PolicyNone, uerr.ArgParsef("unknown add policy %q", s)
	}
}
