package uloop

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/usong"
)

// runSaveTimer ticks on the configured save timeout, grounded on
// internal/playlist/scheduler.go's ticker-and-select shape. It posts a
// saveTick envelope rather than saving directly, so the actual write
// still happens from inside the loop goroutine.
func (l *Loop) runSaveTimer(ctx context.Context) {
	interval := l.conf.SaveTimeout
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case l.inbox <- envelope{saveTick: true}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// runHardPauseSweeper periodically gives the player a chance to
// hard-pause its sink once a pause's fade deadline has passed, freeing
// the external decoder process while the user has walked away. Grounded
// on the same ticker shape as runSaveTimer; a short fixed interval is
// fine since SweepHardPause is a no-op check outside its deadline.
func (l *Loop) runHardPauseSweeper(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case l.inbox <- envelope{hardPauseTick: true}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// startScanJob launches a background library scan, refusing to start a
// second one while one is already running (the job registry's
// at-most-one-per-kind invariant). The scan itself runs off the loop
// goroutine; only its result is posted back into the inbox.
func (l *Loop) startScanJob(ctx context.Context) error {
	if _, running := l.jobs[JobScan]; running {
		return uerr.Invalid("a library scan is already running")
	}
	jobCtx, cancel := context.WithCancel(ctx)
	l.jobs[JobScan] = cancel

	cfg := usong.ScanConfig{
		SearchPaths: append([]string{}, l.conf.SearchPaths...),
		Extensions:  append([]string{}, l.conf.Extensions...),
		Recursive:   l.conf.Recursive,
	}
	known := l.knownPaths()

	go func() {
		result := usong.Scan(cfg, known)
		select {
		case l.inbox <- envelope{scan: &result}:
		case <-jobCtx.Done():
		}
	}()
	return nil
}

func (l *Loop) knownPaths() map[string]bool {
	known := make(map[string]bool)
	for _, id := range l.lib.AllIDs() {
		known[l.lib.Song(id).Path] = true
	}
	return known
}

// handleScanResult integrates a finished scan: newly found songs are
// added (preferring tombstone slots, per usong.Library.AddPersistent).
// Scan skips paths it already knew about rather than re-reading them,
// so "missing" detection is a separate pass here: when RemoveMissing is
// set, every already-catalogued song is stat'd and tombstoned if its
// file is gone, propagating deletion to every playlist on the stack
// (spec §4.2/§4.3).
func (l *Loop) handleScanResult(ctx context.Context, result *usong.ScanResult) []uevent.Event {
	delete(l.jobs, JobScan)

	for path, err := range result.Errors {
		slog.Warn("scan error", "path", path, "error", err)
	}

	newIDs := make([]usong.SongId, 0, len(result.Songs))
	for _, s := range result.Songs {
		newIDs = append(newIDs, l.lib.AddPersistent(s))
	}

	// Feed the freshly-scanned songs to the active playlist per its
	// add_policy (spec §4.3's scan-integration step); a playlist with
	// no add_policy set silently ignores them.
	if len(newIDs) > 0 {
		l.player.AddSongs(newIDs, nil)
	}

	if l.conf.RemoveMissing {
		for _, id := range l.lib.AllIDs() {
			path := l.lib.Song(id).Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				l.lib.Delete(id)
			}
		}
		l.player.PurgeDeleted(l.lib)
	}

	if len(newIDs) > 0 {
		l.startDurationProbeJob(ctx, newIDs)
	}

	return []uevent.Event{{Kind: uevent.SetPlaylist, Data: l.playbackSnapshot()}}
}

// durationResult pairs a song's id with its probed duration, posted by
// a background duration-probe job back into the loop.
type durationResult struct {
	id       usong.SongId
	duration time.Duration
}

// startDurationProbeJob probes each newly-scanned song's real duration
// in the background and posts the results back to the loop, refining
// what the tag reader left at zero (spec §4.3's "refine length by
// opening the decoder"). Probing is independent of JobScan/JobSave and
// is not registered in l.jobs: it is a best-effort refinement, not
// something a caller ever waits on or needs to cancel individually.
func (l *Loop) startDurationProbeJob(ctx context.Context, ids []usong.SongId) {
	paths := make(map[usong.SongId]string, len(ids))
	for _, id := range ids {
		paths[id] = l.lib.Song(id).Path
	}

	go func() {
		results := make([]durationResult, 0, len(paths))
		for id, path := range paths {
			d, err := l.player.Probe(path)
			if err != nil {
				slog.Warn("probing duration failed", "path", path, "error", err)
				continue
			}
			results = append(results, durationResult{id: id, duration: d})
		}
		if len(results) == 0 {
			return
		}
		select {
		case l.inbox <- envelope{durations: results}:
		case <-ctx.Done():
		}
	}()
}

func (l *Loop) handleDurationResults(results []durationResult) []uevent.Event {
	for _, r := range results {
		l.lib.UpdateDuration(r.id, r.duration)
	}
	return []uevent.Event{{Kind: uevent.SetPlaylist, Data: l.playbackSnapshot()}}
}
