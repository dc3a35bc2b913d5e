package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efreitasn/tradefeed/internal/bus"
	"github.com/efreitasn/tradefeed/internal/config"
	"github.com/efreitasn/tradefeed/internal/engine"
	"github.com/efreitasn/tradefeed/internal/handler"
	"github.com/efreitasn/tradefeed/internal/service"
	"github.com/efreitasn/tradefeed/internal/store"
)

// outboundBus is what the engine publishes to, plus its availability feed.
type outboundBus interface {
	engine.Bus
	OnAvailability(l bus.AvailabilityListener)
}

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	envFile := flag.String("env-file", ".env", "Optional dotenv file read before the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores.
	ledger := store.NewSeededLedger()
	pending := store.NewPendingStore()

	seeds, err := engine.ParseSeedPrices(store.SeedQuotePrices())
	if err != nil {
		logger.Error("invalid seed prices", slog.String("error", err.Error()))
		os.Exit(1)
	}
	quotes := engine.NewQuoteGenerator(seeds, cfg.QuoteVolatility, nil)

	// Message bus. Local sessions always attach to the hub; with Redis the
	// engine publishes to Redis and a relay feeds the hub back.
	hub := bus.NewMemory()
	var (
		outbound outboundBus = hub
		rb       *bus.Redis
	)
	if cfg.BusBackend == config.BusRedis {
		rb = bus.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.BusProbeInterval, logger)
		defer rb.Close()
		outbound = rb
	}

	// Engine.
	trades := engine.NewTradeEngine(ledger, pending, outbound, logger)
	dispatcher := engine.NewNotificationDispatcher(
		cfg.NotificationInterval,
		cfg.NotificationGrace,
		pending,
		outbound,
		logger,
	)
	broadcaster := engine.NewBroadcaster(cfg.QuoteInterval, quotes, outbound, logger)
	outbound.OnAvailability(broadcaster.SetBusAvailable)

	// Services and router.
	portfolioSvc := service.NewPortfolioService(ledger)
	tradeSvc := service.NewTradeService(trades, logger)
	gateway := handler.NewGateway(hub, portfolioSvc, tradeSvc, logger)
	router := handler.NewRouter(portfolioSvc, tradeSvc, gateway, logger)

	// Probing starts only after every availability listener is registered.
	if rb != nil {
		go rb.Watch(ctx)
		go relay(ctx, rb, hub, cfg.BusProbeInterval, logger)
	}
	dispatcher.Start(ctx)
	broadcaster.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("bus", cfg.BusBackend),
			slog.Int("users", ledger.Users()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()
	hub.SetAvailable(true)

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Pending notifications are not drained; they are lost with the process.
	hub.SetAvailable(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped", slog.Int("pending_notifications", pending.Len()))
}

// relay keeps the Redis → hub relay running, restarting it after failures.
func relay(ctx context.Context, rb *bus.Redis, hub *bus.Memory, retry time.Duration, logger *slog.Logger) {
	for {
		err := rb.Relay(ctx, hub)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("bus relay stopped, retrying", slog.String("error", err.Error()), slog.Duration("retry", retry))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
