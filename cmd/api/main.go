package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-api/internal/config"
	"github.com/taskhive/taskhive-api/internal/domain/activity"
	"github.com/taskhive/taskhive-api/internal/domain/campaign"
	"github.com/taskhive/taskhive-api/internal/domain/claim"
	"github.com/taskhive/taskhive-api/internal/domain/wallet"
	"github.com/taskhive/taskhive-api/internal/middleware"
	"github.com/taskhive/taskhive-api/internal/pkg/chain"
	"github.com/taskhive/taskhive-api/internal/pkg/database"
	"github.com/taskhive/taskhive-api/internal/pkg/jwt"
	"github.com/taskhive/taskhive-api/internal/pkg/logger"
	pkgresponse "github.com/taskhive/taskhive-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting TaskHive API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	rates, err := wallet.ParseRates(cfg.DiamondPriceUSD, cfg.DiamondToUSDTRate, cfg.WithdrawFeeRate, cfg.DiamondsPerUSDT)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid rate configuration")
	}

	chainClient, err := chain.NewClient(chain.Config{
		RPCURL:  cfg.ChainRPCURL,
		Timeout: time.Duration(cfg.ChainTimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create chain client")
	}
	defer chainClient.Close()

	// ---------- Repositories ----------
	walletRepo := wallet.NewRepository(db, cfg.StartingDiamonds)
	campaignRepo := campaign.NewRepository(db)
	claimRepo := claim.NewRepository(db)
	activityRepo := activity.NewRepository(db)

	// ---------- Services ----------
	activityService := activity.NewService(activityRepo, redis, cfg.ActivityChannelName, cfg.ActivityQueueSize)
	go activityService.Run()
	defer activityService.Close()

	walletService := wallet.NewService(walletRepo, rates, chainClient, activityService)
	campaignService := campaign.NewService(db, campaignRepo, walletRepo, activityService)
	claimService := claim.NewService(db, claimRepo, campaignRepo, walletRepo, activityService)

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	campaignHandler := campaign.NewHandler(campaignService)
	claimHandler := claim.NewHandler(claimService)
	activityHandler := activity.NewHandler(activityService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/campaigns", campaignHandler.Routes(authMiddleware))
		r.Mount("/claims", claimHandler.Routes(authMiddleware))
		r.Mount("/activity", activityHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
