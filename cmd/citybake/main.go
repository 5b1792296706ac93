// Package main assembles a city map into a baked scene buffer file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/assets"
	"github.com/Faultbox/midgard-city/internal/engine/city"
	"github.com/Faultbox/midgard-city/internal/engine/model"
	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

func main() {
	mapPath := flag.String("map", "map.txt", "City map file")
	root := flag.String("assets", "obj", "Asset directory or http(s) URL")
	out := flag.String("out", "city.csb", "Output file")
	normals := flag.String("normals", "zero", "Missing normals policy: zero or require")
	concurrency := flag.Int("concurrency", 8, "Parallel asset loads")
	seed := flag.Uint64("seed", 0, "Variant seed (0 picks a random seed)")
	spanLimit := flag.Int("shell-span", 0, "Clamp building shell width and depth (0 disables)")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP asset timeout")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := bake(*mapPath, *root, *out, *normals, *concurrency, *seed, *spanLimit, *timeout); err != nil {
		logger.Error("bake failed", zap.Error(err))
		os.Exit(1)
	}
}

func bake(mapPath, root, out, normals string, concurrency int, seed uint64, spanLimit int, timeout time.Duration) error {
	m, err := formats.ParseCityMapFile(mapPath)
	if err != nil {
		return err
	}
	policy, err := model.ParseNormalsPolicy(normals)
	if err != nil {
		return err
	}
	src, err := assets.NewSource(root, timeout)
	if err != nil {
		return err
	}

	manager := assets.NewManager(src, assets.WithNormals(policy), assets.WithConcurrency(concurrency))
	opts := []city.Option{city.WithShellSpanLimit(spanLimit)}
	if seed != 0 {
		opts = append(opts, city.WithSeed(seed))
	}

	buf, stats, err := city.NewAssembler(manager, city.DefaultSymbolTable(), opts...).Assemble(context.Background(), m)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	w := bufio.NewWriter(f)
	n, err := buf.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	logger.Info("scene baked",
		zap.String("out", out),
		zap.Int64("bytes", n),
		zap.Int("footprints", stats.Footprints),
		zap.Int("placements", stats.Placements),
		zap.Int("vertices", stats.Vertices),
		zap.Strings("degraded", stats.Degraded))
	return nil
}
