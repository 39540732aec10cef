package ucontrol

import (
	"strings"

	"github.com/arung-agamani/uamp/internal/uerr"
)

// AliasDef is a named, parameterized list of control messages. Body
// tokens may contain literal messages or ${param} references; expansion
// is purely textual, never pre-compiled, because a parameter can change
// which variant a token parses to (spec.md §9).
type AliasDef struct {
	Params []string
	Body   string
}

// ParseAliasDef parses a config alias body of the form
// "[p1,p2]:rest of body" (declares parameters) or a bare body with no
// parameters, matching the shape of original_source's "palb" example
// alias in config/default.rs.
func ParseAliasDef(raw string) AliasDef {
	if strings.HasPrefix(raw, "[") {
		if end := strings.Index(raw, "]:"); end >= 0 {
			params := strings.Split(raw[1:end], ",")
			return AliasDef{Params: params, Body: raw[end+2:]}
		}
	}
	return AliasDef{Body: raw}
}

// Expand substitutes every ${param} reference in def.Body with the
// corresponding value from args (matched by declaration order), then
// parses the resulting text as a list of messages. A missing alias is
// handled by the caller (looked up by name in the config's alias table)
// and is non-fatal there; here, a wrong number of arguments is a hard
// error, per spec.md §4.4's "Wrong arity ⇒ hard error returned to the
// caller."
func Expand(def AliasDef, args []string) ([]Msg, error) {
	if len(args) != len(def.Params) {
		return nil, uerr.ArgParsef(
			"alias expects %d argument(s), got %d", len(def.Params), len(args))
	}

	body := def.Body
	for i, param := range def.Params {
		body = strings.ReplaceAll(body, "${"+param+"}", args[i])
	}
	return ParseList(body)
}
