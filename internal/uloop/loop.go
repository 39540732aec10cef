// Package uloop implements the single-goroutine application loop: the
// one place that owns the library, player, and config, and the only
// place any of their methods are called from (SPEC_FULL.md §5). Every
// other package (internal/userver, the sink's end-of-song callback,
// background scan jobs) only ever posts work into the loop's inbox; it
// never reaches into uplayer/usong/uconf state directly.
package uloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uconf"
	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
)

// JobKind identifies a class of background job the loop tracks so at
// most one instance of each runs at a time.
type JobKind int

const (
	JobScan JobKind = iota
	JobSave
)

func (k JobKind) String() string {
	switch k {
	case JobScan:
		return "scan"
	case JobSave:
		return "save"
	default:
		return "unknown"
	}
}

// Task is a batch of control messages submitted together (one HTTP
// request's worth), and the channel the caller waits on for per-message
// results. Reply may be nil for fire-and-forget submission.
type Task struct {
	Msgs  []ucontrol.Msg
	Reply chan []Result
}

// Result is the outcome of applying a single message from a Task.
type Result struct {
	Err error
}

// envelope is the loop's one inbound message type, merging the
// thread-safe task producer (HTTP handlers) with background-job
// producers (scan completion, save ticks, sink end-of-song) onto a
// single channel, per SPEC_FULL.md §5.
type envelope struct {
	task          *Task
	scan          *usong.ScanResult
	sinkEnd       bool
	endErr        bool
	saveTick      bool
	hardPauseTick bool
	prefetch      bool
	durations     []durationResult
	query         *readQuery
}

// Restarter restarts the HTTP listener on a new address, implemented by
// internal/userver.Server. A Reload control message that changes
// server_address/port drives this, publishing new-server once the new
// listener is up (spec §4.5/§4.6).
type Restarter interface {
	Restart(ctx context.Context, addr string) error
}

// Loop owns every piece of mutable core state. Nothing in this struct,
// nor in uplayer/usong/uconf, is guarded by a mutex: single-goroutine
// ownership is the synchronization mechanism.
type Loop struct {
	lib    *usong.Library
	player *uplayer.Player
	conf   *uconf.Config

	libStore  *usong.Store
	confStore *uconf.Store

	sink      uevent.Sink
	restarter Restarter

	inbox chan envelope

	jobs map[JobKind]context.CancelFunc

	closing bool
	done    chan struct{}
}

// SetRestarter wires in the HTTP listener restart capability. Left
// unset (nil) when no server is running; a Reload that changes the
// listener address is then a no-op beyond the config reload itself.
func (l *Loop) SetRestarter(r Restarter) { l.restarter = r }

// New wires a Loop together. sink may be uevent.NopSink{} when no HTTP
// server is running (e.g. a bare CLI invocation for scripting).
func New(lib *usong.Library, player *uplayer.Player, conf *uconf.Config, libStore *usong.Store, confStore *uconf.Store, sink uevent.Sink) *Loop {
	l := &Loop{
		lib:       lib,
		player:    player,
		conf:      conf,
		libStore:  libStore,
		confStore: confStore,
		sink:      sink,
		inbox:     make(chan envelope, 32),
		jobs:      make(map[JobKind]context.CancelFunc),
		done:      make(chan struct{}),
	}
	player.SetEndCallback(l.onSinkEnd)
	player.SetPrefetchCallback(l.onPrefetch)
	return l
}

// Submit enqueues a task for processing and returns immediately; the
// caller reads task.Reply for results. Safe to call from any goroutine.
func (l *Loop) Submit(t Task) { l.inbox <- envelope{task: &t} }

// onSinkEnd is registered with the player's sink and runs on the sink's
// own goroutine; it must not touch core state directly, only post into
// the inbox (spec §9's cyclic-ownership break).
func (l *Loop) onSinkEnd(reason usink.EndReason) {
	l.inbox <- envelope{sinkEnd: true, endErr: reason == usink.EndError}
}

// onPrefetch is registered with the player's sink and runs on the
// sink's own goroutine; like onSinkEnd it must only post into the
// inbox (spec §9).
func (l *Loop) onPrefetch() {
	l.inbox <- envelope{prefetch: true}
}

// Snapshot is the full current state, sent as the "set-all" event to a
// freshly subscribed SSE client and after a config reload.
type Snapshot struct {
	Playback PlaybackSnapshot `json:"playback"`
	Config   *uconf.Config    `json:"config"`
}

// State returns a full snapshot of the current playback and config,
// safe to call synchronously only from inside the loop goroutine (i.e.
// from within an apply() handler) — server code must go through Submit
// plus a reply, or through RunSync (query.go).
func (l *Loop) State() Snapshot {
	return Snapshot{Playback: l.playbackSnapshot(), Config: l.conf}
}

// Run is the loop's body. It blocks until ctx is cancelled, processing
// envelopes one batch at a time: block for the first, then drain
// whatever else is already queued without blocking, apply all of them,
// and only then flush the accumulated events to the sink — so a client
// watching the SSE stream sees one coherent update per batch rather
// than a flicker of intermediate states.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	saveCtx, cancelSave := context.WithCancel(ctx)
	defer cancelSave()
	go l.runSaveTimer(saveCtx)
	go l.runHardPauseSweeper(saveCtx)

	if l.conf.UpdateOnInit {
		l.startScanJob(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case env := <-l.inbox:
			events := l.handle(ctx, env)
		drain:
			for {
				select {
				case env2 := <-l.inbox:
					events = append(events, l.handle(ctx, env2)...)
				default:
					break drain
				}
			}
			for _, ev := range events {
				l.sink.Publish(ev)
			}
			if l.closing {
				l.shutdown()
				return
			}
		}
	}
}

// handle dispatches one envelope and returns the events it produced.
func (l *Loop) handle(ctx context.Context, env envelope) []uevent.Event {
	switch {
	case env.task != nil:
		return l.handleTask(ctx, env.task)
	case env.scan != nil:
		return l.handleScanResult(ctx, env.scan)
	case env.sinkEnd:
		return l.handleSinkEnd(ctx, env.endErr)
	case env.saveTick:
		return l.handleSaveTick()
	case env.hardPauseTick:
		return l.handleHardPauseTick()
	case env.prefetch:
		return l.handlePrefetch()
	case env.durations != nil:
		return l.handleDurationResults(env.durations)
	case env.query != nil:
		env.query.reply <- env.query.fn()
		return nil
	default:
		return nil
	}
}

// handleHardPauseTick lets the player release its decoder process if a
// pause has outlasted its fade deadline. Not externally visible as a
// playback-state change (Paused covers both soft and hard pause), so no
// event is published.
func (l *Loop) handleHardPauseTick() []uevent.Event {
	if _, err := l.player.SweepHardPause(time.Now()); err != nil {
		slog.Warn("hard-pause sweep failed", "error", err)
	}
	return nil
}

func (l *Loop) handleTask(ctx context.Context, t *Task) []uevent.Event {
	results := make([]Result, len(t.Msgs))
	var events []uevent.Event
	for i, msg := range t.Msgs {
		ev, err := l.apply(ctx, msg)
		results[i] = Result{Err: err}
		events = append(events, ev...)
	}
	if t.Reply != nil {
		t.Reply <- results
	}
	return events
}

func (l *Loop) handleSinkEnd(ctx context.Context, wasError bool) []uevent.Event {
	if wasError {
		slog.Warn("sink reported a decode/child failure, advancing anyway")
	}
	res, err := l.player.PlayNext(1)
	if err != nil {
		slog.Error("advancing after song end", "error", err)
		return nil
	}
	events := []uevent.Event{{Kind: uevent.Playback, Data: l.playbackSnapshot()}}
	if res.HasAlias {
		aliasEvents, err := l.invokeAlias(ctx, res.EndAlias, nil)
		if err != nil {
			slog.Warn("on_end alias failed", "alias", res.EndAlias, "error", err)
		} else {
			events = append(events, aliasEvents...)
		}
	}
	return events
}

func (l *Loop) handleSaveTick() []uevent.Event {
	if !l.lib.Changed() && !l.conf.Changed() {
		return nil
	}
	if err := l.saveAll(); err != nil {
		slog.Error("periodic save failed", "error", err)
	}
	return nil
}

// saveAll persists both stores, matching spec §4.3's save sequence:
// drop temporary songs no playlist references, truncate trailing
// tombstones, then write both files.
func (l *Loop) saveAll() error {
	l.lib.RetainTemporary(l.referencedTemporaryIDs())
	l.lib.TruncateTrailingTombstones()

	if err := l.libStore.Save(l.lib); err != nil {
		return uerr.Wrap(uerr.IO, "saving library", err)
	}
	l.lib.ClearChanged()

	if err := l.confStore.Save(l.conf); err != nil {
		return uerr.Wrap(uerr.IO, "saving config", err)
	}
	l.conf.ClearChanged()
	return nil
}

func (l *Loop) referencedTemporaryIDs() map[usong.SongId]bool {
	keep := make(map[usong.SongId]bool)
	for _, pl := range l.player.Stack() {
		for _, id := range pl.IDs() {
			if id.IsTemporary() {
				keep[id] = true
			}
		}
	}
	return keep
}

// shutdown performs the synchronous close sequence: refuse further work
// (Run's caller is about to stop reading anyway), save unconditionally,
// and publish Quitting.
func (l *Loop) shutdown() {
	l.closing = true
	for kind, cancel := range l.jobs {
		slog.Info("cancelling background job for shutdown", "job", kind)
		cancel()
	}
	if err := l.saveAll(); err != nil {
		slog.Error("save during shutdown failed", "error", err)
	}
	l.sink.Publish(uevent.Event{Kind: uevent.Quitting})
}

// Done is closed once Run has fully exited.
func (l *Loop) Done() <-chan struct{} { return l.done }
