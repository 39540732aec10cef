package uloop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arung-agamani/uamp/internal/uevent"
)

// reloadConfig re-reads config.json, merging it into the live Config
// (spec §4.5's explicit Reload control message), and restarts the HTTP
// listener when the address or port changed. A listener restart
// failure is logged but does not fail the reload itself: the config is
// already merged at that point.
func (l *Loop) reloadConfig(ctx context.Context) ([]uevent.Event, error) {
	prevAddr, prevPort := l.conf.ServerAddress, l.conf.Port
	if err := l.conf.Reload(l.confStore); err != nil {
		return nil, err
	}

	events := []uevent.Event{{Kind: uevent.SetAll, Data: l.State()}}

	addrChanged := l.conf.ServerAddress != prevAddr || l.conf.Port != prevPort
	if !addrChanged || l.restarter == nil {
		return events, nil
	}

	addr := fmt.Sprintf("%s:%d", l.conf.ServerAddress, l.conf.Port)
	if err := l.restarter.Restart(ctx, addr); err != nil {
		slog.Error("restarting HTTP listener after reload", "addr", addr, "error", err)
		return events, nil
	}
	return append(events, uevent.Event{Kind: uevent.NewServer}), nil
}
