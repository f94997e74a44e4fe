// Command smugdancer serves tempo-adjusted GIFs of a fixed source
// animation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ocx/smugdancer/internal/animation"
	"github.com/ocx/smugdancer/internal/cache"
	"github.com/ocx/smugdancer/internal/config"
	"github.com/ocx/smugdancer/internal/gate"
	"github.com/ocx/smugdancer/internal/httpapi"
	"github.com/ocx/smugdancer/internal/metrics"
	"github.com/ocx/smugdancer/internal/render"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	configPath := flag.String("config", config.DefaultPath, "path to the TOML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using process environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	frameCount, err := animation.FrameCountSource{
		Hardcoded: cfg.Animation.FrameCount.Hardcoded,
		Command:   cfg.Animation.FrameCount.Command,
		Flags:     cfg.Animation.FrameCount.Flags,
	}.Resolve()
	if err != nil {
		logger.Error("cannot resolve animation frame count", "error", err)
		os.Exit(1)
	}

	anim := animation.Info{
		FPS:        cfg.Animation.FPS,
		WaveCount:  cfg.Animation.WaveCount,
		FrameCount: frameCount,
	}
	logger.Debug("resolved animation", "frame_count", frameCount, "minimum_bpm", anim.MinimumBPM())

	if err := cache.Setup(cfg.CacheService.CacheDir); err != nil {
		logger.Error("cannot set up cache directory", "error", err)
		os.Exit(1)
	}
	store, err := cache.OpenStore(cfg.CacheService.Database)
	if err != nil {
		logger.Error("cannot open cache database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	m := metrics.New()

	renderSvc := render.New(render.Config{
		Encoder:      cfg.RenderService.Encoder,
		EncoderFlags: cfg.RenderService.EncoderFlags,
		MaxJobs:      cfg.RenderService.MaxJobs,
	}, anim, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	renderSvc.Start(ctx)

	cacheSvc := cache.New(cache.Config{
		CacheDir:      cfg.CacheService.CacheDir,
		Database:      cfg.CacheService.Database,
		Limit:         cfg.CacheService.Limit,
		PurgeLimit:    cfg.CacheService.PurgeLimit,
		PurgeMaxCount: cfg.CacheService.PurgeMaxCount,
	}, renderSvc, store, logger, m)

	requestGate := gate.New(*cfg.Server.RateLimiting)

	server := httpapi.New(cacheSvc, requestGate, anim, cfg.Server.Root, cfg.Server.ReverseProxy, logger, m)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
