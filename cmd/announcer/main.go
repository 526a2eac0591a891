package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/config"
	"github.com/ad-tracker/youtube-announcer-go/internal/events"
	"github.com/ad-tracker/youtube-announcer-go/internal/format"
	"github.com/ad-tracker/youtube-announcer-go/internal/handler"
	"github.com/ad-tracker/youtube-announcer-go/internal/metrics"
	"github.com/ad-tracker/youtube-announcer-go/internal/middleware"
	"github.com/ad-tracker/youtube-announcer-go/internal/onboarding"
	"github.com/ad-tracker/youtube-announcer-go/internal/scheduler"
	"github.com/ad-tracker/youtube-announcer-go/internal/service"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/quota"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
	"github.com/ad-tracker/youtube-announcer-go/internal/storage"
	"github.com/ad-tracker/youtube-announcer-go/internal/telegram"
	"github.com/ad-tracker/youtube-announcer-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("Announcer stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Log

	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	log.Info("Starting YouTube announcer",
		zap.String("storage", cfg.Database.Driver),
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.Int("workers", cfg.Scheduler.Workers),
	)

	stores, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	if err := stores.PingWithTimeout(ctx, 5*time.Second); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	log.Info("Storage ready")

	m := metrics.New()
	quotaManager := quota.NewManager(stores.Quota, cfg.YouTube.DailyQuota, cfg.YouTube.QuotaThreshold, logger.Named("quota"))
	feed := youtube.NewFeedClient(&http.Client{Timeout: cfg.YouTube.RequestTimeout}, "")

	// Interfaces stay nil without a key so the source and resolver fall back
	// to the feed instead of calling a nil client.
	var (
		api    service.YouTubeAPI
		lookup service.ChannelLookup
	)
	if cfg.YouTube.APIKey != "" {
		client, err := youtube.NewClient(ctx, cfg.YouTube.APIKey, cfg.YouTube.MaxResults)
		if err != nil {
			return fmt.Errorf("create youtube client: %w", err)
		}
		api, lookup = client, client
	}

	source := service.NewContentSource(api, feed, quotaManager, m, service.SourceOptions{
		UploadsFromFeed:  cfg.YouTube.UploadsSource == config.UploadsFromFeed,
		IncludeLive:      cfg.YouTube.IncludeLive,
		IncludePremieres: cfg.YouTube.IncludePremieres,
		RequestTimeout:   cfg.YouTube.RequestTimeout,
	}, logger.Named("source"))
	resolver := service.NewChannelResolver(lookup, feed, quotaManager, m, logger.Named("resolver"))

	var publisher events.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ, logger.Named("events"))
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer func() { _ = rabbit.Close() }()
		publisher = rabbit
		log.Info("Announcement events enabled", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	// Onboarding replies are plain text, so they reach the default handler.
	var commands *telegram.CommandHandler
	botOpts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			commands.HandleText(ctx, b, update)
		}),
	}
	if cfg.Telegram.APIURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(cfg.Telegram.APIURL))
	}
	b, err := bot.New(cfg.Telegram.Token, botOpts...)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	formatter := format.New(cfg.Branding.Footer)
	messenger := telegram.NewMessenger(b, logger.Named("telegram"))
	dispatcher := service.NewDispatcher(messenger, formatter, cfg.Dispatcher.MinSendInterval, cfg.Dispatcher.SendTimeout, m, logger.Named("dispatcher"))

	sweeper := service.NewSweeper(
		stores.Channels,
		source,
		service.NewDedupStore(stores.Ledger),
		dispatcher,
		publisher,
		m,
		service.SweeperConfig{
			Workers:      cfg.Scheduler.Workers,
			FetchTimeout: cfg.Scheduler.ChannelTimeout,
		},
		logger.Named("sweeper"),
	)
	sched := scheduler.New(sweeper, cfg.Scheduler.Interval, logger.Named("scheduler"))

	sessions := onboarding.NewManager(onboarding.DefaultTTL)
	commands = telegram.NewCommandHandler(b, stores.Channels, stores.Ledger, quotaManager, resolver, source, formatter, sessions, sched, telegram.CommandOptions{
		Telegram:      cfg.Telegram,
		Interval:      cfg.Scheduler.Interval,
		HasAPIKey:     cfg.YouTube.APIKey != "",
		StorageDriver: cfg.Database.Driver,
	}, logger.Named("commands"))

	var wg sync.WaitGroup
	if cfg.Telegram.Commands {
		commands.Register(b)
		if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands.Commands()}); err != nil {
			log.Warn("Failed to publish command menu", zap.Error(err))
		}
		wg.Go(func() { b.Start(ctx) })
		wg.Go(func() { purgeSessions(ctx, sessions, log) })
		log.Info("Telegram command polling started")
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(
		handler.NewHealthHandler(stores, publisher),
		handler.NewSweepHandler(sched, logger.Named("sweeps")),
		middleware.NewAPIKeyAuth(cfg.Admin.APIKeys, logger.Named("auth")),
		m.Handler(),
		logger.Named("http"),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	cancelRun()
	wg.Wait()

	log.Info("Announcer stopped")
	return runErr
}

// purgeSessions drops expired onboarding sessions until ctx is done.
func purgeSessions(ctx context.Context, sessions *onboarding.Manager, log *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Purge(); n > 0 {
				log.Debug("Expired onboarding sessions", zap.Int("count", n))
			}
		}
	}
}
