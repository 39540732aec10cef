package usink

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arung-agamani/uamp/internal/uerr"
)

// FFPlaySink drives an external ffplay process per loaded song,
// following internal/ffmpeg/encoder.go's exec.CommandContext-and-pipe
// shape. Pause/Resume use SIGSTOP/SIGCONT so the decoder keeps its
// position; HardPause kills the process outright to release the audio
// device, reloading it (seeked to the saved timestamp) on the next
// Play, matching spec §4.2's hard-pause semantics.
type FFPlaySink struct {
	mu sync.Mutex

	path      string
	volume    float64
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	startedAt time.Time
	pausedAt  time.Duration // accumulated position while stopped/hard-paused
	stopped   bool          // true between HardPause and the next Play/Load

	onEnd func(EndReason)

	prefetchThreshold time.Duration
	prefetchCb        func()
	prefetchTimer     *time.Timer

	preroll *prerollProc
}

// prerollProc is a second ffplay process held at SIGSTOP, ready to be
// promoted into s.cmd the instant the currently loaded song ends, so
// the transition costs a signal round-trip rather than a fresh process
// start (spec §4.2's pre-roll slot). This narrows, but given one
// process per loaded song cannot eliminate, the transition gap.
type prerollProc struct {
	path   string
	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
}

// NewFFPlaySink creates a sink with no song loaded.
func NewFFPlaySink() *FFPlaySink {
	return &FFPlaySink{volume: 1}
}

func (s *FFPlaySink) Load(path string, playing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardPrerollLocked()
	s.killLocked()
	s.path = path
	s.pausedAt = 0
	s.stopped = !playing

	if playing {
		return s.startLocked(0)
	}
	return nil
}

func (s *FFPlaySink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil && !s.stopped {
		return nil // already playing
	}
	if s.cmd != nil && s.cmd.Process != nil {
		// Was soft-paused: resume in place.
		if err := s.cmd.Process.Signal(syscall.SIGCONT); err != nil {
			return uerr.Wrap(uerr.AudioDecode, "resuming playback", err)
		}
		s.startedAt = time.Now()
		s.stopped = false
		return nil
	}
	// Hard-paused or never started: reload from the saved position.
	return s.startLocked(s.pausedAt)
}

func (s *FFPlaySink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	s.pausedAt = s.positionLocked()
	if err := s.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return uerr.Wrap(uerr.AudioDecode, "pausing playback", err)
	}
	s.stopped = true
	return nil
}

func (s *FFPlaySink) HardPause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		s.pausedAt = s.positionLocked()
	}
	s.killLocked()
	s.stopped = true
	return nil
}

func (s *FFPlaySink) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasStopped := s.stopped
	s.killLocked()
	s.pausedAt = pos
	if wasStopped {
		return nil
	}
	return s.startLocked(pos)
}

func (s *FFPlaySink) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	// ffplay has no live-volume IPC over a plain pipe; a changed volume
	// takes effect on the next Load/Seek restart. This matches the
	// teacher's own ffmpeg.Encoder, which also only accepts its
	// parameters at process-start time.
	return nil
}

func (s *FFPlaySink) Timestamp() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *FFPlaySink) OnEnd(cb func(reason EndReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = cb
}

func (s *FFPlaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardPrerollLocked()
	s.killLocked()
	return nil
}

// OnPrefetch registers the threshold and callback used to arm the
// prefetch timer on every subsequent Load/PromotePreroll.
func (s *FFPlaySink) OnPrefetch(threshold time.Duration, cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefetchThreshold = threshold
	s.prefetchCb = cb
}

// Probe opens path in a short-lived ffprobe child to read its duration
// only, independent of whatever this sink has loaded.
func (s *FFPlaySink) Probe(path string) (time.Duration, error) {
	out, err := exec.Command("ffprobe", "-v", "quiet", "-show_entries", "format=duration", "-of", "csv=p=0", path).Output()
	if err != nil {
		return 0, uerr.Wrap(uerr.ChildFailed, "probing duration", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, uerr.Wrap(uerr.AudioDecode, "parsing probed duration", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Preroll starts path in a held (SIGSTOPped) ffplay process, leaving
// whatever is currently loaded untouched.
func (s *FFPlaySink) Preroll(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardPrerollLocked()

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", volumePercent(s.volume), path}
	cmd := exec.CommandContext(ctx, "ffplay", args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return uerr.Wrap(uerr.ChildFailed, "starting pre-roll ffplay", err)
	}
	if err := cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		cancel()
		return uerr.Wrap(uerr.AudioDecode, "holding pre-roll", err)
	}
	s.preroll = &prerollProc{path: path, cmd: cmd, ctx: ctx, cancel: cancel}
	return nil
}

// PromotePreroll switches s.cmd to the held pre-roll process, resuming
// it in place rather than starting a fresh one.
func (s *FFPlaySink) PromotePreroll(playing bool) (bool, error) {
	s.mu.Lock()
	pre := s.preroll
	if pre == nil {
		s.mu.Unlock()
		return false, nil
	}
	s.preroll = nil

	s.killLocked()
	s.path = pre.path
	s.cmd = pre.cmd
	s.cancel = pre.cancel
	s.startedAt = time.Now()
	s.pausedAt = 0
	s.stopped = !playing
	s.mu.Unlock()

	if playing {
		if err := pre.cmd.Process.Signal(syscall.SIGCONT); err != nil {
			return true, uerr.Wrap(uerr.AudioDecode, "resuming pre-roll", err)
		}
	}

	s.watch(pre.ctx, pre.cmd, pre.path)
	s.armPrefetch(pre.cmd, pre.path, 0)
	return true, nil
}

func (s *FFPlaySink) discardPrerollLocked() {
	if s.preroll != nil {
		s.preroll.cancel()
		s.preroll = nil
	}
}

func (s *FFPlaySink) positionLocked() time.Duration {
	if s.stopped || s.startedAt.IsZero() {
		return s.pausedAt
	}
	return s.pausedAt + time.Since(s.startedAt)
}

func (s *FFPlaySink) killLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.cmd = nil
	if s.prefetchTimer != nil {
		s.prefetchTimer.Stop()
		s.prefetchTimer = nil
	}
}

func (s *FFPlaySink) startLocked(from time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", volumePercent(s.volume)}
	if from > 0 {
		args = append(args, "-ss", durationSeconds(from))
	}
	args = append(args, s.path)

	cmd := exec.CommandContext(ctx, "ffplay", args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return uerr.Wrap(uerr.ChildFailed, "starting ffplay", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.startedAt = time.Now()
	s.pausedAt = from
	s.stopped = false

	s.watch(ctx, cmd, s.path)
	s.armPrefetch(cmd, s.path, from)

	return nil
}

// watch waits for cmd to exit and reports the outcome to the
// registered OnEnd callback, unless cmd has since been superseded by a
// later Load/Seek/PromotePreroll.
func (s *FFPlaySink) watch(ctx context.Context, cmd *exec.Cmd, path string) {
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		ended := s.cmd == cmd
		if ended {
			s.cmd = nil
		}
		cb := s.onEnd
		s.mu.Unlock()

		if !ended || cb == nil {
			return
		}
		if err != nil && ctx.Err() == nil {
			slog.Warn("ffplay exited with error", "path", path, "error", err)
			cb(EndError)
			return
		}
		if ctx.Err() == nil {
			cb(EndNatural)
		}
	}()
}

// armPrefetch probes path's duration in the background and schedules
// the prefetch callback to fire prefetchThreshold before it ends,
// measured from the from offset. A zero threshold, or a probe failure,
// leaves prefetch unarmed for this load.
func (s *FFPlaySink) armPrefetch(cmd *exec.Cmd, path string, from time.Duration) {
	s.mu.Lock()
	threshold, cb := s.prefetchThreshold, s.prefetchCb
	s.mu.Unlock()
	if threshold <= 0 || cb == nil {
		return
	}

	go func() {
		duration, err := s.Probe(path)
		if err != nil {
			return
		}
		remaining := duration - from - threshold
		if remaining <= 0 {
			return
		}

		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			live := s.cmd == cmd
			s.mu.Unlock()
			if live {
				cb()
			}
		})

		s.mu.Lock()
		if s.cmd == cmd {
			s.prefetchTimer = timer
		} else {
			timer.Stop()
		}
		s.mu.Unlock()
	}()
}

func volumePercent(v float64) string {
	p := int(v * 100)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return itoa(p)
}

func durationSeconds(d time.Duration) string {
	return floatStr(d.Seconds())
}
