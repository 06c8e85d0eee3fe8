package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockvault-api/internal/config"
	"stockvault-api/internal/gateway"
	"stockvault-api/internal/handler"
	"stockvault-api/internal/ingest"
	"stockvault-api/internal/middleware"
	"stockvault-api/internal/repository"
	"stockvault-api/internal/router"
	"stockvault-api/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting StockVault API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the ledger based on config
	var ledger repository.Ledger
	switch cfg.Ledger.Type {
	case "mysql":
		mysqlLedger, err := repository.NewMySQLLedger(cfg.Ledger.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL ledger: %v", err)
		}
		ledger = mysqlLedger
		log.Println("MySQL ledger initialized")
	default: // sqlite
		sqliteLedger, err := repository.NewSQLiteLedger(cfg.Ledger.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite ledger: %v", err)
		}
		ledger = sqliteLedger
		log.Println("SQLite ledger initialized")
	}
	defer ledger.Close()

	// Initialize Redis client for operator session tokens
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		redisClient = nil
	} else {
		log.Println("Redis client initialized")
	}
	cancel()

	var tokenService *service.TokenService
	if redisClient != nil {
		tokenService = service.NewTokenService(redisClient)
	}

	// Initialize the outbound messenger (optional)
	var messenger gateway.Messenger
	if cfg.Gateway.BaseURL != "" {
		messenger = gateway.NewHTTPMessenger(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.SendTimeout)
		log.Println("HTTP messenger initialized")
	} else {
		log.Println("Warning: no gateway configured, outbound notifications disabled")
	}

	// Initialize services
	redemptionService := service.NewRedemptionService(ledger, cfg.App.SuperAdminID)
	inventoryService := service.NewInventoryService(ledger, cfg.App.SuperAdminID)
	entitlementService := service.NewEntitlementService(ledger, cfg.App.SuperAdminID, messenger)
	keyService := service.NewKeyService(ledger)

	var broadcastService *service.BroadcastService
	if messenger != nil {
		broadcastService = service.NewBroadcastService(ledger, messenger)
	}

	var broadcaster ingest.Broadcaster
	if broadcastService != nil {
		broadcaster = broadcastService
	}
	ingestManager := ingest.NewManager(inventoryService, broadcaster)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, ledger)
	redeemHandler := handler.NewRedeemHandler(redemptionService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	userHandler := handler.NewUserHandler(entitlementService)
	keyHandler := handler.NewKeyHandler(keyService, entitlementService)
	ingestHandler := handler.NewIngestHandler(ingestManager, entitlementService)
	adminHandler := handler.NewAdminHandler(ledger, cfg.Ledger.Type, entitlementService)

	var authHandler *handler.AuthHandler
	if tokenService != nil {
		authHandler = handler.NewAuthHandler(tokenService, entitlementService)
	}

	// Create auth middleware with injected dependencies (NO GLOBALS!)
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenService: tokenService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:          healthHandler,
		RedeemHandler:    redeemHandler,
		InventoryHandler: inventoryHandler,
		UserHandler:      userHandler,
		KeyHandler:       keyHandler,
		IngestHandler:    ingestHandler,
		AdminHandler:     adminHandler,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
