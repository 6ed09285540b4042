// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/log"
	"github.com/polystake/vault/lvldb"
	"github.com/polystake/vault/metrics"
)

func fatal(args ...any) {
	fmt.Fprint(os.Stderr, "Fatal: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fatal(fmt.Sprintf(format, args...))
}

func defaultDataDir() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, ".polystake")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	lvl := new(slog.LevelVar)
	lvl.Set(verbosityToLevel(ctx.Uint64(verbosityFlag.Name)))

	if ctx.Bool(jsonLogsFlag.Name) {
		log.SetDefault(log.NewLogger(log.JSONHandlerWithLevel(os.Stderr, lvl)))
		return
	}
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	log.Init(lvl, useColor)
}

func verbosityToLevel(verbosity uint64) slog.Level {
	switch verbosity {
	case 0:
		return log.LevelCrit
	case 1:
		return log.LevelError
	case 2:
		return log.LevelWarn
	case 3:
		return log.LevelInfo
	case 4:
		return log.LevelDebug
	default:
		return log.LevelTrace
	}
}

// openStore picks the state store: an on-disk leveldb under data-dir when
// --persist is set, an in-memory store otherwise.
func openStore(ctx *cli.Context) (kv.GetPutter, func()) {
	if !ctx.Bool(persistFlag.Name) {
		return kv.NewMem(), func() {}
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatalf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		fatalf("create data dir at '%v': %v", dataDir, err)
	}
	dir := filepath.Join(dataDir, "vault.db")
	db, err := lvldb.New(dir, lvldb.Options{})
	if err != nil {
		fatalf("open vault database at '%v': %v", dir, err)
	}
	return db, func() {
		log.Info("closing vault database...")
		if err := db.Close(); err != nil {
			log.Warn("failed to close vault database", "err", err)
		}
	}
}

func startAPIServer(ctx *cli.Context, handler http.HandlerFunc) (*http.Server, string) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatalf("listen API addr '%v': %v", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			log.Error("API server stopped", "err", err)
		}
	}()
	return srv, "http://" + listener.Addr().String() + "/"
}

func startMetricsServer(ctx *cli.Context) (*http.Server, string) {
	addr := ctx.String(metricsAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatalf("listen metrics addr '%v': %v", addr, err)
	}
	router := http.NewServeMux()
	router.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	return srv, "http://" + listener.Addr().String() + "/metrics"
}

// handleExitSignal cancels the returned context on SIGINT/SIGTERM.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
