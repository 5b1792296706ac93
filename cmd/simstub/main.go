// Package main runs a local stand-in for the traffic simulation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/internal/simstub"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

func main() {
	addr := flag.String("addr", ":8585", "Listen address")
	mapPath := flag.String("map", "map.txt", "City map file")
	lightPeriod := flag.Int("light-period", 10, "Steps between traffic light toggles")
	spawnEvery := flag.Int("spawn-every", 10, "Steps between corner spawns")
	seed := flag.Uint64("seed", 1, "Random seed for destinations")
	autostep := flag.Duration("autostep", 0, "Advance on this interval without /update calls (0 disables)")
	level := flag.String("log-level", "info", "Log level")
	logFile := flag.String("log-file", "", "Write logs to this file")
	flag.Parse()

	if err := logger.Init(*level, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m, err := formats.ParseCityMapFile(*mapPath)
	if err != nil {
		logger.Error("failed to read map", zap.Error(err))
		os.Exit(1)
	}

	sim := simstub.New(m, simstub.Options{
		LightPeriod: *lightPeriod,
		SpawnEvery:  *spawnEvery,
		Seed:        *seed,
	})
	stub := simstub.NewServer(sim)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *autostep > 0 {
		go stub.Autostep(ctx, *autostep)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stub.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("simulation stub listening",
		zap.String("addr", *addr),
		zap.String("map", *mapPath),
		zap.Int("width", sim.Width()),
		zap.Int("height", sim.Height()))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("simulation stub stopped")
}
