package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/internal/adapters/config"
	"github.com/akravets/coinboard/internal/adapters/database"
	"github.com/akravets/coinboard/internal/adapters/llm"
	"github.com/akravets/coinboard/internal/adapters/news"
	"github.com/akravets/coinboard/internal/adapters/telegram"
	"github.com/akravets/coinboard/internal/chat"
	"github.com/akravets/coinboard/internal/graphs"
	"github.com/akravets/coinboard/internal/indicators"
	"github.com/akravets/coinboard/internal/market"
	"github.com/akravets/coinboard/internal/users"
	"github.com/akravets/coinboard/internal/web"
	"github.com/akravets/coinboard/internal/workers"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/worker"
)

const (
	shutdownTimeout      = 10 * time.Second
	resetCleanupInterval = time.Hour
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nreceived interrupt, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Missing .env is fine in production: env vars come from the runtime.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("coinboard starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("top_n", cfg.Sync.TopN),
	)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Outbound adapters.
	gecko := coingecko.NewClient(&cfg.CoinGecko)
	llmClient := llm.NewClient(&cfg.LLM)

	notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		return fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	// Market pipeline.
	assetRepo := market.NewRepository(db.DB())
	cache := market.NewSnapshotCache()
	marketSvc := market.NewService(assetRepo, cache, cfg.Sync.CacheTTL, nil)

	reconciler := market.NewReconciler(gecko, cfg.Sync.DetailFetchDelay)
	hub := web.NewPriceHub()
	syncWorker := workers.NewMarketSyncWorker(
		gecko, assetRepo, reconciler, cache, hub, notifier, cfg.Sync.TopN, cfg.Sync.Interval,
	)
	marketSvc.SetRefresher(syncWorker)

	// Domain services.
	graphsSvc := graphs.NewService(gecko, marketSvc)
	indicatorSvc := indicators.NewService(gecko, indicators.NewRepository(db.DB()))

	chatSvc := chat.NewService(chat.NewRepository(db.DB()), llmClient, graphsSvc, marketSvc)

	usersRepo := users.NewRepository(db.DB())
	usersSvc := users.NewService(
		usersRepo,
		users.BcryptHasher{},
		users.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		users.LogMailer{From: cfg.Auth.MailFrom},
		cfg.Auth.ResetTokenTTL,
	)

	newsRepo := news.NewRepository(db.DB())

	// Background jobs.
	group := worker.NewGroup(ctx)
	group.Add(syncWorker, cfg.Sync.Interval)
	group.Add(workers.NewIndicatorWorker(assetRepo, indicatorSvc, cfg.Sync.DetailFetchDelay), cfg.Sync.IndicatorInterval)
	if cfg.News.Enabled {
		group.Add(workers.NewNewsWorker(news.NewCoinDeskProvider(), newsRepo, cfg.News.Limit), cfg.News.Interval)
	}
	group.Add(workers.NewResetCleanupWorker(usersRepo), resetCleanupInterval)
	group.Start()

	// HTTP surface.
	server := web.NewServer(
		marketSvc, graphsSvc, indicatorSvc, chatSvc, usersSvc,
		newsRepo, cfg.News.Limit, hub, db,
	)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router(cfg.Server.AllowedOrigins),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		group.Stop(shutdownTimeout)
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}

	group.Stop(shutdownTimeout)
	logger.Info("coinboard stopped")
	return nil
}
