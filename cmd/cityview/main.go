// Package main is the entry point for the city traffic viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/assets"
	"github.com/Faultbox/midgard-city/internal/config"
	"github.com/Faultbox/midgard-city/internal/engine/city"
	"github.com/Faultbox/midgard-city/internal/game"
	"github.com/Faultbox/midgard-city/internal/game/traffic"
	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/internal/network"
	"github.com/Faultbox/midgard-city/internal/viewer"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cityview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// The terminal belongs to the viewer; logs only go to the file.
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, false); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("=== Midgard City Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cityMap, err := formats.ParseCityMapFile(cfg.Map.Path)
	if err != nil {
		return err
	}

	normals, err := cfg.NormalsPolicy()
	if err != nil {
		return err
	}
	src, err := assets.NewSource(cfg.Assets.Root, cfg.Server.HTTPTimeout)
	if err != nil {
		return err
	}
	manager := assets.NewManager(src,
		assets.WithNormals(normals),
		assets.WithConcurrency(cfg.Assets.Concurrency),
	)

	var asmOpts []city.Option
	if cfg.Assets.Seed != 0 {
		asmOpts = append(asmOpts, city.WithSeed(cfg.Assets.Seed))
	}
	assembler := city.NewAssembler(manager, city.DefaultSymbolTable(), asmOpts...)

	client, err := network.New(cfg.Server.URL, cfg.Server.HTTPTimeout)
	if err != nil {
		return err
	}
	session := game.NewSession(client, assembler, traffic.NewInterpolator(cfg.Animation.Interpolation))

	stats, err := session.LoadMap(ctx, cityMap)
	if err != nil {
		return err
	}
	logger.Info("scene ready",
		zap.Int("vertices", stats.Vertices),
		zap.Int("degraded", len(stats.Degraded)))

	if err := session.Start(ctx, cfg.Server.Agents); err != nil {
		return err
	}

	opts := viewer.Options{
		FrameInterval: cfg.Viewer.FrameInterval,
		ShowHelp:      cfg.Viewer.ShowHelp,
		Title:         fmt.Sprintf("midgard-city · %s", cfg.Map.Path),
	}
	if cfg.Server.Transport == config.TransportStream {
		go func() {
			if err := session.RunStream(ctx, client, cfg.Server.PollInterval); err != nil && ctx.Err() == nil {
				logger.Error("stream stopped", zap.Error(err))
			}
		}()
	} else {
		opts.PollInterval = cfg.Server.PollInterval
	}

	p := tea.NewProgram(viewer.New(ctx, session, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("viewer: %w", err)
	}

	logger.Info("viewer closed normally")
	return nil
}
