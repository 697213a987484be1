// Command labeldexd is the engine's server entrypoint (spec §6): it
// parses configuration, builds the shard pool, optionally loads an
// initial dataset, and serves the HTTP API until a shutdown signal
// arrives.
//
// Signal handling and the logFatal test-seam variable are ported from
// johnjansen-torua's cmd/node/main.go; the initial-load loop mirrors
// the original's bin/main.rs (io::BufReader lines -> raw_add ->
// wait_pending_operations).
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/labeldex/internal/config"
	"github.com/dreamware/labeldex/internal/dispatcher"
	"github.com/dreamware/labeldex/internal/httpapi"
	"github.com/dreamware/labeldex/internal/logging"
	"github.com/dreamware/labeldex/internal/telemetry"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	cli, err := config.Parse("labeldexd", os.Args[1:])
	if err != nil {
		logFatal("parse config: %v", err)
		return
	}

	logger, err := logging.New(cli.LogLevel)
	if err != nil {
		logFatal("build logger: %v", err)
		return
	}
	defer logger.Sync()

	sink := telemetry.NewPrometheusSink()
	disp := dispatcher.New(cli.Shards, sink, logger)
	logger.Infow("dispatcher initialized", "shards", cli.Shards)

	if !cli.SkipLoad && cli.InitialLoad != "" {
		if err := loadInitialDataset(disp, cli.InitialLoad, logger); err != nil {
			logFatal("load initial dataset: %v", err)
			return
		}
	}

	h := httpapi.NewHandler(disp, logger)
	router := httpapi.NewRouter(h, "web")
	srv := &http.Server{
		Addr:              cli.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("listening", "addr", cli.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logFatal("server error: %v", err)
		return
	}
	logger.Info("labeldexd stopped")
}

// loadInitialDataset reads path line by line, enqueues each line via
// RawAdd (fire-and-forget, matching the original's raw_add loop), then
// waits for the shard pool to quiesce before returning.
func loadInitialDataset(disp *dispatcher.Dispatcher, path string, logger interface {
	Infow(string, ...interface{})
}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	logger.Infow("loading initial dataset", "path", path)
	start := time.Now()
	total := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		disp.RawAdd(line)
		total++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := disp.Wait(waitCtx, 10*time.Millisecond); err != nil {
		return fmt.Errorf("wait for initial load to settle: %w", err)
	}

	logger.Infow("loaded initial dataset", "lines", total, "elapsed", time.Since(start))
	return nil
}
