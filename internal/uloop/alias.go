package uloop

import (
	"context"
	"log/slog"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uevent"
)

// invokeAlias resolves name against the config's alias table, expands
// it against args, and applies the resulting message list in order,
// accumulating every event they produce. A missing alias expands to
// the empty list: logged, non-fatal, never surfaced as an error (spec
// §4.4) — wrong arity against a known alias still surfaces as
// ucontrol.Expand's ArgParse error.
func (l *Loop) invokeAlias(ctx context.Context, name string, args []string) ([]uevent.Event, error) {
	raw, ok := l.conf.Aliases[name]
	if !ok {
		slog.Warn("unknown alias invoked", "alias", name)
		return nil, nil
	}

	def := ucontrol.ParseAliasDef(raw)
	msgs, err := ucontrol.Expand(def, args)
	if err != nil {
		return nil, err
	}

	var events []uevent.Event
	for _, m := range msgs {
		ev, err := l.apply(ctx, m)
		if err != nil {
			return events, err
		}
		events = append(events, ev...)
	}
	return events, nil
}
