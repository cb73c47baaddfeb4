package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/community-agent/internal/api/http"
	"github.com/spec-kit/community-agent/internal/api/http/handlers"
	"github.com/spec-kit/community-agent/internal/audit"
	"github.com/spec-kit/community-agent/internal/bot"
	"github.com/spec-kit/community-agent/internal/config"
	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/internal/gateway"
	"github.com/spec-kit/community-agent/internal/mediacache"
	"github.com/spec-kit/community-agent/internal/observability"
	"github.com/spec-kit/community-agent/internal/registry"
	"github.com/spec-kit/community-agent/internal/service"
	"github.com/spec-kit/community-agent/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	gw := gateway.NewDiscordClient(session)
	reg := registry.New()
	bus := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	cache, err := mediacache.New(cfg.Media, bus, logger)
	if err != nil {
		logger.Fatal("failed to init media cache", zap.Error(err))
	}
	if purged := cache.PurgeAll(); purged > 0 {
		logger.Info("purged stale cached media at startup", zap.Int("files", purged))
	}

	tickets := service.NewTicketService(cfg.Ticket, service.TicketDependencies{
		Registry:   reg,
		Gateway:    gw,
		Dispatcher: bus,
		Logger:     logger,
	})

	emitter := audit.NewEmitter(gw, cfg.Discord.LogChannelID, logger)
	notifier := audit.NewNotifier(emitter, metrics, logger)
	worker.StartAuditWorker(notifier, bus)
	worker.StartSweeper(ctx, cache, cfg.Media.SweepInterval(), logger)

	agent := bot.New(cfg, bot.Dependencies{
		Session:    session,
		Gateway:    gw,
		Tickets:    tickets,
		Cache:      cache,
		Dispatcher: bus,
		Logger:     logger,
	})

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord gateway", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck

	if err := agent.RegisterCommands(); err != nil {
		logger.Error("failed to register commands", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version),
		Stats:  handlers.NewStatsHandler(metrics, reg, cache),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if purged := cache.PurgeAll(); purged > 0 {
		logger.Info("purged cached media at shutdown", zap.Int("files", purged))
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
