package userver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arung-agamani/uamp/internal/uconf"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/uloop"
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
)

type stubSink struct{ onEnd func(usink.EndReason) }

func (s *stubSink) Load(path string, playing bool) error { return nil }
func (s *stubSink) Play() error                           { return nil }
func (s *stubSink) Pause() error                          { return nil }
func (s *stubSink) HardPause() error                      { return nil }
func (s *stubSink) Seek(pos time.Duration) error          { return nil }
func (s *stubSink) SetVolume(v float64) error              { return nil }
func (s *stubSink) Timestamp() time.Duration               { return 0 }
func (s *stubSink) OnEnd(cb func(usink.EndReason))         { s.onEnd = cb }
func (s *stubSink) OnPrefetch(threshold time.Duration, cb func()) {}
func (s *stubSink) Probe(path string) (time.Duration, error)      { return 0, nil }
func (s *stubSink) Preroll(path string) error                     { return nil }
func (s *stubSink) PromotePreroll(playing bool) (bool, error)     { return false, nil }
func (s *stubSink) Close() error                                  { return nil }

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	dir := t.TempDir()

	lib := usong.NewLibrary()
	var ids []usong.SongId
	for _, title := range []string{"alpha", "beta"} {
		ids = append(ids, lib.AddPersistent(usong.Song{Title: title, Path: filepath.Join(dir, title+".flac")}))
	}

	conf := uconf.Default()
	conf.UpdateOnInit = false
	conf.SaveTimeout = time.Hour

	libStore, err := usong.NewStore(filepath.Join(dir, "library.json"))
	if err != nil {
		t.Fatal(err)
	}
	confStore, err := uconf.NewStore(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	player := uplayer.NewPlayer(&stubSink{}, lib, conf.FadePlayPause, conf.Gapless)
	hub := NewHub()
	loop := uloop.New(lib, player, conf, libStore, confStore, hub)

	pl := uplayer.NewPlaylist(ids, 0)
	if err := player.PlayPlaylist(pl, false); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	srv := NewServer(loop, hub, "127.0.0.1:0")
	ts := httptest.NewServer(securityHeaders(mustMux(srv)))

	cleanup := func() {
		ts.Close()
		cancel()
		<-loop.Done()
	}
	return ts, cleanup
}

// mustMux re-derives the handler registered by NewServer so tests can
// drive it through httptest.Server instead of a real net.Listener.
func mustMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/ctrl", s.ctrlHandler)
	mux.HandleFunc("GET /api/req", s.reqHandler)
	mux.HandleFunc("GET /api/subscribe", s.subscribeHandler)
	return mux
}

func TestCtrlHandlerAppliesMessagesAndReportsSuccess(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/ctrl?pp=play")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCtrlHandlerRejectsUnknownMessage(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/ctrl?pp=banana")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReqHandlerReturnsInfoWithDefaultRange(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/req?nfo")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 1 {
		t.Fatalf("expected exactly one element, got %d", len(body))
	}
	if _, ok := body[0]["Info"]; !ok {
		t.Fatalf("expected an Info element, got %+v", body[0])
	}
}

func TestReqHandlerReturnsQuery(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/req?l=tit:alpha")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	songs, ok := body[0]["Query"]
	if !ok {
		t.Fatalf("expected a Query element, got %+v", body[0])
	}
	var parsed []usong.Song
	if err := json.Unmarshal(songs, &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 1 || parsed[0].Title != "alpha" {
		t.Fatalf("expected exactly the 'alpha' song, got %+v", parsed)
	}
}

func TestUnmatchedRouteIs404(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubscribeSendsSetAllFirst(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/subscribe", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("event: %s\n", uevent.SetAll)
	if line != want {
		t.Fatalf("expected first SSE line %q, got %q", want, line)
	}
	if !strings.HasPrefix(line, "event: ") {
		t.Fatalf("malformed SSE line: %q", line)
	}
}
