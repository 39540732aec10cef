package userver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arung-agamani/uamp/internal/ucontrol"
	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/uevent"
	"github.com/arung-agamani/uamp/internal/uloop"
)

// Server is the HTTP front door onto a Loop: it never touches
// lib/player/conf directly, only ever through Loop.Submit and
// Loop.RunSync (spec §4.7's "only ever send into the loop's channel").
type Server struct {
	loop       *uloop.Loop
	hub        *Hub
	handler    http.Handler
	httpServer *http.Server
	restart    chan string
}

// securityHeaders mirrors internal/radio/server.go's middleware: a
// loopback control daemon still benefits from the same baseline
// hardening against a malicious page in the user's own browser.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func NewServer(loop *uloop.Loop, hub *Hub, addr string) *Server {
	s := &Server{loop: loop, hub: hub, restart: make(chan string, 1)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/ctrl", s.ctrlHandler)
	mux.HandleFunc("GET /api/req", s.reqHandler)
	mux.HandleFunc("GET /api/subscribe", s.subscribeHandler)

	s.handler = securityHeaders(mux)
	s.httpServer = s.newHTTPServer(addr)
	return s
}

func (s *Server) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE subscriptions are long-lived
		IdleTimeout:  60 * time.Second,
	}
}

// Start runs the HTTP server until ctx is cancelled, rebinding to a new
// address whenever Restart is called (spec §4.5's Reload control
// message), and shuts down gracefully on exit. Grounded on
// internal/radio/server.go's Start(ctx).
func (s *Server) Start(ctx context.Context) error {
	for {
		errCh := make(chan error, 1)
		srv := s.httpServer
		go func() {
			slog.Info("HTTP server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case addr := <-s.restart:
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			srv.Shutdown(shutdownCtx)
			cancel()
			s.httpServer = s.newHTTPServer(addr)
		}
	}
}

// Restart asks the running Start loop to shut down the current
// listener and bind addr instead. Safe to call from any goroutine
// (the Reload handler runs on the application loop's goroutine).
func (s *Server) Restart(ctx context.Context, addr string) error {
	select {
	case s.restart <- addr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ctrlHandler implements GET /api/ctrl?<control-msg>[&<control-msg>...]
// (spec §4.6/§6): every query-string pair becomes one control message,
// submitted to the loop as a single batch so they apply atomically
// between any other task.
func (s *Server) ctrlHandler(w http.ResponseWriter, r *http.Request) {
	msgs, err := parseCtrlQuery(r.URL.RawQuery)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(msgs) == 0 {
		writeErr(w, uerr.ArgParsef("ctrl requires at least one control message"))
		return
	}

	reply := make(chan []uloop.Result, 1)
	s.loop.Submit(uloop.Task{Msgs: msgs, Reply: reply})
	results := <-reply
	for _, res := range results {
		if res.Err != nil {
			writeErr(w, res.Err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Success!"))
}

// parseCtrlQuery splits a raw query string on '&', URL-unescapes each
// piece, and parses it with ucontrol.ParseToken. Splitting on the raw
// string (rather than url.ParseQuery's map) preserves message order and
// repeated keys, both required for e.g. "ns&ns" meaning "next twice".
func parseCtrlQuery(raw string) ([]ucontrol.Msg, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, "&")
	msgs := make([]ucontrol.Msg, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		tok, err := url.QueryUnescape(part)
		if err != nil {
			return nil, uerr.ArgParsef("invalid query encoding in %q", part)
		}
		msg, err := ucontrol.ParseToken(tok)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// reqHandler implements GET /api/req (spec §4.6/§6): `nfo`/`info`/`show`
// requests an Info snapshot (range defaults to 1..3), `l`/`list`/`query`
// requests a materialized song list. Exactly one of the two is honored
// per request, matching req_msg.rs's from_kv dispatch on the key.
func (s *Server) reqHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if v, key := firstPresent(q, "nfo", "info", "show"); key != "" {
		before, after, err := parseRange(v)
		if err != nil {
			writeErr(w, err)
			return
		}
		info := s.loop.Info(before, after)
		writeJSON(w, http.StatusOK, []map[string]any{{"Info": info}})
		return
	}

	if v, key := firstPresent(q, "l", "list", "query"); key != "" {
		songs, err := s.loop.QuerySongs(v)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"Query": songs}})
		return
	}

	writeErr(w, uerr.ArgParsef("invalid request type, expected one of nfo/info/show/l/list/query"))
}

// firstPresent returns the value and matched key of the first of keys
// present in q (even with an empty value, to distinguish "?nfo" from
// "?nfo=2..5"), or ("", "") if none are present.
func firstPresent(q url.Values, keys ...string) (string, string) {
	for _, k := range keys {
		if vs, ok := q[k]; ok {
			if len(vs) > 0 {
				return vs[0], k
			}
			return "", k
		}
	}
	return "", ""
}

// parseRange parses a "<before>..<after>" range, defaulting to 1..3
// when v is empty (spec §4.6's "/api/req default range is 1..3 when nfo
// has no value").
func parseRange(v string) (before, after int, err error) {
	if v == "" {
		return 1, 3, nil
	}
	parts := strings.SplitN(v, "..", 2)
	if len(parts) != 2 {
		return 0, 0, uerr.ArgParsef("invalid range %q, expected <before>..<after>", v)
	}
	before, err1 := strconv.Atoi(parts[0])
	after, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, uerr.ArgParsef("invalid range %q, expected <before>..<after>", v)
	}
	return before, after, nil
}

// subscribeHandler serves the SSE event stream (spec §4.6): the first
// event is always set-all (a full snapshot), after which every
// published event is forwarded verbatim by kebab-case kind name.
func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, uerr.Unexpectedf("streaming unsupported by this response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	writeSSE(w, uevent.Event{Kind: uevent.SetAll, Data: s.loop.RunSync(func() any { return s.loop.State() })})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.ch:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

// writeSSE frames one event in the "event: <kind>\ndata: <json>\n\n"
// shape. quitting/restarting carry no data line, matching the original
// exactly (original_source/src/core/server/sub_msg.rs).
func writeSSE(w http.ResponseWriter, ev uevent.Event) {
	fmt.Fprintf(w, "event: %s\n", ev.Kind)
	if data, ok := encodeEventData(ev); ok {
		fmt.Fprintf(w, "data: %s\n", data)
	}
	fmt.Fprint(w, "\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeErr maps a uerr.Error (or any other error) to its HTTP status
// and writes the message as the body text, per spec §7's "HTTP error
// mapping" (e.g. a bad control message echoes the offending value).
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if e, ok := uerr.As(err); ok {
		status = e.HTTPStatus()
	}
	http.Error(w, err.Error(), status)
}
