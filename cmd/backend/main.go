package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/rino-1830/discord-live-scribe/external/audio"
	configloader "github.com/rino-1830/discord-live-scribe/external/config"
	"github.com/rino-1830/discord-live-scribe/external/discord"
	metricsimpl "github.com/rino-1830/discord-live-scribe/external/metrics"
	repositoryimpl "github.com/rino-1830/discord-live-scribe/external/repository"
	streamimpl "github.com/rino-1830/discord-live-scribe/external/stream"
	transcriberimpl "github.com/rino-1830/discord-live-scribe/external/transcriber"
	webhookimpl "github.com/rino-1830/discord-live-scribe/external/webhook"
	"github.com/rino-1830/discord-live-scribe/internal/config"
	discordpkg "github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/session"
	"github.com/rino-1830/discord-live-scribe/internal/transcript"
	"github.com/rino-1830/discord-live-scribe/internal/worker"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	workerStopTimeout     = 10 * time.Second
	metricsStopTimeout    = 5 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching capture and transcription pipeline")
	run(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	streamimpl.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	metricsimpl.RegisterDI(injector)
	transcript.RegisterDI(injector)
	worker.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func run(cfg *config.Config, injector do.Injector) {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}
	w, err := do.Invoke[*worker.Worker](injector)
	if err != nil {
		slog.Error("failed to resolve transcription worker", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	botUserID, err := dc.GetBotUserID()
	if err != nil {
		slog.Error("failed to resolve bot user id", "error", err)
		os.Exit(1)
	}
	manager.SetBotUserID(botUserID)

	dc.RegisterVoiceStateUpdateHandler(manager.HandleVoiceStateUpdate)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "voice_channel_id", cfg.DiscordVoiceChannelID)
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	var metricsServer *metricsimpl.Server
	if cfg.MetricsAddr != "" {
		metricsServer, err = do.Invoke[*metricsimpl.Server](injector)
		if err != nil {
			slog.Error("failed to resolve metrics server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	workerDone := make(chan struct{})
	go func() {
		if err := w.Run(workerCtx); err != nil {
			slog.Error("transcription worker failed", "error", err)
		}
		close(workerDone)
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	manager.Shutdown()

	stopWorker()
	select {
	case <-workerDone:
	case <-time.After(workerStopTimeout):
		slog.Warn("transcription worker did not stop in time")
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), metricsStopTimeout)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
		cancelShutdown()
	}
}
