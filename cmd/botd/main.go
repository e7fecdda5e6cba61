// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/quartel/warteraum/internal/api"
	"github.com/quartel/warteraum/internal/commands"
	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/daemon"
	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/health"
	"github.com/quartel/warteraum/internal/library"
	wrlog "github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/module"
	"github.com/quartel/warteraum/internal/player"
	"github.com/quartel/warteraum/internal/waitingroom"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the real config is loaded.
	wrlog.Configure(wrlog.Config{
		Level:   "info",
		Service: "warteraum",
		Version: version,
	})
	logger := wrlog.WithComponent("botd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit via --config, otherwise ${WR_DATA}/config.yaml
	// when it exists.
	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		dataDir := strings.TrimSpace(config.ParseString("WR_DATA", config.Defaults().DataDir))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectivePath = autoPath
		}
	}

	cfg, err := config.NewLoader(effectivePath).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(wrlog.FieldEvent, "config.load_failed").
			Str("config_path", effectivePath).
			Msg("failed to load configuration")
	}

	wrlog.Configure(wrlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	logger.Info().
		Str(wrlog.FieldEvent, "config.loaded").
		Str("config_path", effectivePath).
		Str("listen", cfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Msg("configuration loaded")

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(wrlog.FieldEvent, "botd.failed").
			Msg("daemon exited with error")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := wrlog.WithComponent("botd")

	lib, err := library.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open music library: %w", err)
	}

	// Standalone adapters until a chat gateway and audio engine are wired
	// in. All session and waiting room logic runs against these.
	gw := gateway.Instrument(gateway.NewInMemory())
	eng := engine.NewInMemory()
	logger.Warn().
		Str(wrlog.FieldEvent, "botd.standalone").
		Bool("gateway_token_set", cfg.GatewayToken != "").
		Msg("running with in-memory gateway and engine")

	registry := player.NewRegistry(eng, cfg)
	sweeper := player.NewSweeper(registry, gw, cfg.SweepInterval)
	waiting := waitingroom.NewController(gw, registry, lib, cfg)
	handler := commands.NewHandler(registry, waiting, gw, lib)

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewLibraryChecker(lib.Names))
	healthMgr.RegisterChecker(health.NewGatewayChecker(nil))
	healthMgr.RegisterChecker(health.NewSessionChecker(registry.Len))

	server := api.NewServer(registry, waiting, healthMgr, lib, handler)

	modules := module.List{
		module.NewMusic(registry, sweeper, gw),
		module.NewWaitingRoom(waiting),
	}
	if err := modules.LoadAll(ctx); err != nil {
		return fmt.Errorf("load modules: %w", err)
	}
	if err := modules.EnableAll(ctx); err != nil {
		return fmt.Errorf("enable modules: %w", err)
	}

	mgr, err := daemon.NewManager(cfg, server.Router())
	if err != nil {
		return err
	}
	mgr.RegisterShutdownHook("library", func(context.Context) error {
		return lib.Close()
	})
	mgr.RegisterShutdownHook("modules", modules.DisableAll)

	return mgr.Run(ctx)
}
