package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onionsite/internal/api"
	"onionsite/internal/beacon"
	"onionsite/internal/bot"
	"onionsite/internal/config"
	"onionsite/internal/database"
	"onionsite/internal/domain"
	"onionsite/internal/events"
	"onionsite/internal/logging"
	"onionsite/internal/metrics"
	"onionsite/internal/redirect"
	"onionsite/internal/repository"
	"onionsite/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := cfg.RequireBot(); err != nil {
		logger.Error().Err(err).Msg("Задайте токен и имя бота в config.yaml")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := repository.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации хранилища")
		return err
	}
	defer backend.Close()

	metrics.Register()
	eventBus := events.NewEventBus()
	subscribeSiteEvents(eventBus, &logger)

	sites := service.NewSiteFactory(backend.Store, cfg.Site, eventBus, logging.Component(&logger, "site"))

	planner, err := redirect.NewPlanner(cfg.Redirect)
	if err != nil {
		return err
	}

	var sender *beacon.Sender
	if cfg.Beacon.Enabled {
		endpoint := beacon.ResolveEndpoint(cfg.Beacon, cfg.Site.URL)
		sender = beacon.NewSender(endpoint, cfg.Beacon.Timeout, logging.Component(&logger, "beacon"))
		logger.Info().Str("endpoint", endpoint).Msg("Analytics beacon enabled")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Beacon.Timeout)
			defer cancel()
			if err := sender.Close(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Beacon deliveries still in flight at shutdown")
			}
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		httpServer := api.NewHTTPServer(cfg.Monitoring.PrometheusPort, sites, map[string]api.ReadinessCheck{
			"store": backend.Ready,
		}, logging.Component(&logger, "http")).WithAPIKeys(cfg.API)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Backup.Enabled && backend.DB != nil {
		backupService := database.NewBackupService(backend.DB.Path(), cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	return startBot(ctx, cfg, sites, backend.Store, sender, planner, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()
	return cfg, logger, closer, nil
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	sites *service.SiteFactory,
	store domain.StateRepository,
	sender *beacon.Sender,
	planner *redirect.Planner,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))

	telegramBot, err := bot.NewBot(
		tgService, cfg, sites, store,
		sender, planner, bot.NewMetrics(prometheus.DefaultRegisterer),
		logging.Component(logger, "bot"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribeSiteEvents logs gate and consent decisions for audit.
func subscribeSiteEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "audit")
	handler := func(ev *events.Event) error {
		audit.Info().Str("event", ev.Type).RawJSON("payload", ev.Payload).Msg("site event")
		return nil
	}
	bus.Subscribe(events.EventDisclaimerAccepted, handler)
	bus.Subscribe(events.EventConsentSaved, handler)
}
