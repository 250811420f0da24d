package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	auth "github.com/nadmetry/scorerelay/internal/auth"
	chain "github.com/nadmetry/scorerelay/internal/chain"
	constants "github.com/nadmetry/scorerelay/internal/constants"
	dedup "github.com/nadmetry/scorerelay/internal/dedup"
	handlers "github.com/nadmetry/scorerelay/internal/handlers"
	models "github.com/nadmetry/scorerelay/internal/models"
	origin "github.com/nadmetry/scorerelay/internal/origin"
	ratelimit "github.com/nadmetry/scorerelay/internal/ratelimit"
	util "github.com/nadmetry/scorerelay/internal/util"
)

func main() {
	_ = godotenv.Load()

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	util.LogInfo("Starting score relay in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	tokens, err := auth.NewSessionTokenAuthority(os.Getenv("SESSION_SECRET"))
	if err != nil {
		util.LogFatal("Session token authority: %v", err)
	}

	privateKey := os.Getenv("WALLET_PRIVATE_KEY")
	if privateKey == "" {
		util.LogFatal("WALLET_PRIVATE_KEY is required")
	}
	contractAddr := os.Getenv("CONTRACT_ADDRESS")
	if contractAddr == "" {
		util.LogFatal("CONTRACT_ADDRESS is required")
	}
	rpcURL := util.GetEnvStr("RPC_URL", "http://localhost:8545")
	writeRPS := float64(util.GetEnvInt("CHAIN_WRITE_RPS", 2))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	writer, err := chain.Dial(ctx, rpcURL, privateKey, contractAddr, writeRPS)
	cancel()
	if err != nil {
		util.LogFatal("Failed to connect chain writer: %v", err)
	}
	defer writer.Close()

	rateStore := ratelimit.NewMemoryStore()
	dedupStore := dedup.NewMemoryStore()

	app := &models.App{
		Tokens:     tokens,
		Origins:    origin.NewGuard(allowedOrigins()),
		Limiter:    ratelimit.NewLimiter(rateStore),
		RateStore:  rateStore,
		RatePolicy: ratelimit.Policy{
			MaxRequests: util.GetEnvInt("RATE_LIMIT_MAX", constants.RateLimitMaxRequests),
			Window:      util.GetEnvDuration("RATE_LIMIT_WINDOW", constants.RateLimitWindow),
		},
		Dedup:        dedup.NewDeduplicator(dedupStore),
		DedupStore:   dedupStore,
		Writer:       writer,
		IsProduction: isProduction,
		StartTime:    time.Now(),
	}

	util.LogInfo("Allowed origins: %s", strings.Join(app.Origins.Allowed(), ", "))

	stopSweeper := app.Dedup.StartSweeper(constants.DedupSweepEvery)
	defer stopSweeper()
	startLimiterCleanup(app)

	router := buildRouter(app)
	startServer(router)
}

func allowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"https://localhost:3000",
	}
	if appURL := os.Getenv("APP_URL"); appURL != "" {
		origins = append(origins, appURL)
	}
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func buildRouter(app *models.App) *gin.Engine {
	router := gin.Default()

	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	// Score state changes every request; nothing here is cacheable.
	router.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))

	router.POST(constants.RouteSessionToken, handlers.OriginGuard(app), func(c *gin.Context) {
		handlers.SessionTokenHandler(app, c)
	})
	router.POST(constants.RouteUpdatePlayerData, handlers.OriginGuard(app), handlers.RateLimit(app), func(c *gin.Context) {
		handlers.UpdatePlayerDataHandler(app, c)
	})
	router.GET(constants.RoutePlayerData, func(c *gin.Context) {
		handlers.PlayerDataHandler(app, c)
	})
	router.POST(constants.RoutePlayerData, func(c *gin.Context) {
		handlers.PlayerDataHandler(app, c)
	})
	router.GET(constants.RoutePlayerDataPerGame, func(c *gin.Context) {
		handlers.PlayerDataPerGameHandler(app, c)
	})
	router.POST(constants.RoutePlayerDataPerGame, func(c *gin.Context) {
		handlers.PlayerDataPerGameHandler(app, c)
	})
	router.GET(constants.RouteHealthz, func(c *gin.Context) {
		handlers.HealthzHandler(app, c)
	})

	return router
}

func startLimiterCleanup(app *models.App) {
	ttl := util.GetEnvDuration("RATE_LIMITER_TTL", 1*time.Hour)
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if removed := app.Limiter.Cleanup(ttl); removed > 0 {
				util.LogInfo("Cleaned up %d stale rate limit counters", removed)
			}
		}
	}()
	util.LogInfo("Started rate limiter cleanup routine")
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}
