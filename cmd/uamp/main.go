package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arung-agamani/uamp/internal/uconf"
	"github.com/arung-agamani/uamp/internal/uloop"
	"github.com/arung-agamani/uamp/internal/uplayer"
	"github.com/arung-agamani/uamp/internal/usink"
	"github.com/arung-agamani/uamp/internal/usong"
	"github.com/arung-agamani/uamp/internal/userver"
)

// -ctrl and -req are a thin passthrough for manual testing against a
// daemon started by a previous invocation; a full CLI is out of scope
// (the daemon itself is the product, per spec.md's own non-goal).
func main() {
	ctrl := flag.String("ctrl", "", "send a control query string to a running daemon's /api/ctrl and exit")
	req := flag.String("req", "", "send a request query string to a running daemon's /api/req and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configDir, cacheDir, err := uconf.Dirs()
	if err != nil {
		slog.Error("resolving config/cache directories", "error", err)
		os.Exit(1)
	}

	confStore, err := uconf.NewStore(filepath.Join(configDir, "config.json"))
	if err != nil {
		slog.Error("opening config store", "error", err)
		os.Exit(1)
	}
	conf, err := confStore.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", conf.ServerAddress, conf.Port)

	if *ctrl != "" || *req != "" {
		runClient(addr, *ctrl, *req)
		return
	}

	libStore, err := usong.NewStore(filepath.Join(cacheDir, "library.json"))
	if err != nil {
		slog.Error("opening library store", "error", err)
		os.Exit(1)
	}
	lib, err := libStore.Load()
	if err != nil {
		slog.Error("loading library", "error", err)
		os.Exit(1)
	}

	sink := usink.NewFFPlaySink()
	defer sink.Close()
	player := uplayer.NewPlayer(sink, lib, conf.FadePlayPause, conf.Gapless)

	hub := userver.NewHub()
	loop := uloop.New(lib, player, conf, libStore, confStore, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	if conf.EnableServer {
		srv := userver.NewServer(loop, hub, addr)
		loop.SetRestarter(srv)
		slog.Info("starting control server", "addr", addr)
		if err := srv.Start(ctx); err != nil {
			slog.Error("control server exited with error", "error", err)
		}
	} else {
		<-ctx.Done()
	}

	<-loopDone
	slog.Info("uamp stopped")
}

// runClient is the -ctrl/-req passthrough: a bare GET against a daemon
// already listening on addr, printing the response body.
func runClient(addr, ctrl, req string) {
	var url string
	switch {
	case ctrl != "":
		url = fmt.Sprintf("http://%s/api/ctrl?%s", addr, ctrl)
	case req != "":
		url = fmt.Sprintf("http://%s/api/req?%s", addr, req)
	}
	resp, err := http.Get(url)
	if err != nil {
		slog.Error("request failed", "error", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	os.Stdout.Write(buf)
	os.Stdout.Write([]byte("\n"))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
