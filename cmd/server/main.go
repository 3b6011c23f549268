package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Xurify/flags.games-server/internal/auth"
	"github.com/Xurify/flags.games-server/internal/cleanup"
	"github.com/Xurify/flags.games-server/internal/config"
	"github.com/Xurify/flags.games-server/internal/game"
	"github.com/Xurify/flags.games-server/internal/handlers"
	"github.com/Xurify/flags.games-server/internal/questions"
	"github.com/Xurify/flags.games-server/internal/ratelimit"
	"github.com/Xurify/flags.games-server/internal/store"
	"github.com/Xurify/flags.games-server/internal/ws"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	// Stores and connection-layer guards.
	rooms := store.NewRoomStore(cfg.Game.InviteCodeLength)
	users := store.NewUserStore()
	ipGuard := ratelimit.NewIPGuard(cfg.Server.MaxConnectionsPerIP,
		cfg.Server.RapidConnectAttempts, cfg.Server.RapidConnectWindow)

	// Hub first, engine second: the engine broadcasts through the hub.
	hub := ws.NewHub(rooms, users, logger, cfg.Server.MaxBufferedBytes,
		cfg.Heartbeat, ipGuard.Release)
	engine := game.NewEngine(rooms, questions.NewProvider(), hub,
		game.NewTimerRegistry(), logger, cfg.Game.StartCountdown, cfg.Game.ResultsDelay)
	hub.SetEngine(engine)

	limiter := ratelimit.NewLimiter(ratelimit.DefaultRules)
	limiter.StartPruning(cfg.Cleanup.Interval)
	defer limiter.Stop()

	defaults := game.DefaultSettings()
	defaults.Difficulty = cfg.Game.DefaultDifficulty
	defaults.QuestionCount = questions.QuestionCount(cfg.Game.DefaultDifficulty)
	defaults.MaxRoomSize = cfg.Game.MaxRoomSize

	wsRouter := ws.NewRouter(hub, rooms, users, engine, limiter, logger,
		cfg.Server.MaxMessageSize, defaults)
	sessions := auth.NewManager(cfg.Server.SessionSecret)

	h := handlers.New(cfg, rooms, users, hub, wsRouter, sessions, ipGuard, logger)
	router := handlers.SetupRouter(h, nil)

	// Background sweeps.
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	sweeper := cleanup.NewService(rooms, users, hub, logger, cfg.Cleanup, cfg.Game.MaxRoomLifetime)
	go sweeper.Run(sweepCtx)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweeps()
	engine.Timers().StopAll()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}

// buildLogger constructs the zap logger from the configured level and
// format.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Server.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
