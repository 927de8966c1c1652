package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/handlers"
	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/services"
	"fairplay-backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)

	store, err := storage.NewStore(cfg.PostgresDSN())
	if err != nil {
		log.Error("failed to connect to postgres", sl.Err(err))
		os.Exit(1)
	}

	cache, err := storage.NewCache(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}
	defer cache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := games.NewResolver(cfg.RTP, cfg.MaxPayout, cfg.DealerHitsSoft17)
	fair := services.NewFairness(store, cfg, log)
	ledger := services.NewLedger(store, cache, resolver, fair, cfg, log)
	jwtService := services.NewJWTService(cfg)

	clk := clock.New()
	sessions := services.NewSessionManager(clk, cfg.SessionLease, ledger, log)
	if err := sessions.Recover(ctx, store); err != nil {
		log.Error("failed to recover open sessions", sl.Err(err))
		os.Exit(1)
	}

	hub := handlers.NewWebSocketHub(log)
	rounds := services.NewRoundOrchestrator(clk, store, cache, ledger, hub, cfg, log)
	wsHandler := handlers.NewWebSocketHandler(rounds, hub, log)
	if err := rounds.Recover(ctx); err != nil {
		log.Error("failed to settle orphaned rounds", sl.Err(err))
		os.Exit(1)
	}
	go rounds.Run(ctx)

	authHandler := handlers.NewAuthHandler(jwtService, fair)
	gameHandler := handlers.NewGameHandler(ledger, fair, store)
	multiStepHandler := handlers.NewMultiStepHandler(ledger, sessions)
	blackjackHandler := handlers.NewBlackjackHandler(ledger, sessions)
	rouletteHandler := handlers.NewRouletteHandler(rounds)
	walletHandler := handlers.NewWalletHandler(ledger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORS())

	router.POST("/auth/token", authHandler.Token)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/deposit", walletHandler.Deposit)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}

		gamesGroup := protected.Group("/games")
		{
			gamesGroup.POST("/bet", gameHandler.PlaceBet)
			gamesGroup.GET("/active", gameHandler.GetActiveBets)
			gamesGroup.GET("/history", gameHandler.GetHistory)
			gamesGroup.POST("/cashout", multiStepHandler.Cashout)

			gamesGroup.GET("/fairness", gameHandler.GetFairness)
			gamesGroup.POST("/fairness/rotate", gameHandler.RotateSeeds)
			gamesGroup.POST("/verify", gameHandler.Verify)

			mines := gamesGroup.Group("/mines")
			{
				mines.POST("/start", multiStepHandler.StartMines)
				mines.POST("/reveal", multiStepHandler.RevealMine)
			}

			pump := gamesGroup.Group("/pump")
			{
				pump.POST("/start", multiStepHandler.StartPump)
				pump.POST("/pump", multiStepHandler.Pump)
			}

			blackjack := gamesGroup.Group("/blackjack")
			{
				blackjack.POST("/deal", blackjackHandler.Deal)
				blackjack.POST("/hit", blackjackHandler.Hit)
				blackjack.POST("/stand", blackjackHandler.Stand)
				blackjack.POST("/double", blackjackHandler.Double)
			}
		}

		roulette := protected.Group("/roulette")
		{
			roulette.POST("/bet", rouletteHandler.PlaceBet)
			roulette.GET("/round", rouletteHandler.GetRound)
		}
	}

	log.Info("server starting", slog.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("server stopped", sl.Err(err))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
