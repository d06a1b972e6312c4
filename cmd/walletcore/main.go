package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lirepay/walletcore/internal/config"
	"github.com/lirepay/walletcore/internal/database"
	"github.com/lirepay/walletcore/internal/ledger"
	"github.com/lirepay/walletcore/internal/notifier"
	"github.com/lirepay/walletcore/internal/otp"
	"github.com/lirepay/walletcore/internal/server"
	"github.com/lirepay/walletcore/internal/transfer"
	"github.com/lirepay/walletcore/internal/withdrawal"
	"github.com/lirepay/walletcore/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to the database
	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Optional redis, used to rate-limit OTP issuance across instances
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unreachable, OTP rate limiting disabled", zap.Error(err))
			redisClient = nil
		}
	}

	// Create services
	ledgerSvc := ledger.NewService(zapLogger, db, cfg.Ledger.AutoCreateWallets)

	var dispatcher otp.Dispatcher
	if cfg.Otp.GatewayURL != "" {
		dispatcher = otp.NewGatewayDispatcher(cfg.Otp.GatewayURL, cfg.Otp.GatewayAPIKey, cfg.Otp.GatewayTimeout, zapLogger)
	} else {
		dispatcher = otp.NewLogDispatcher(zapLogger)
	}
	limiter := otp.NewRateLimiter(redisClient, cfg.Otp.RateLimit, cfg.Otp.RateWindow)
	otpGate := otp.NewService(zapLogger, db, dispatcher, limiter, cfg.Otp.Digits, cfg.Otp.TTL)

	notify := notifier.NewZapNotifier(zapLogger)
	withdrawalSvc := withdrawal.NewService(zapLogger, ledgerSvc, otpGate, notify, cfg.Withdrawal.FeePercent)
	verifier := transfer.NewBcryptVerifier(db)
	transferSvc := transfer.NewService(zapLogger, ledgerSvc, verifier, notify)

	// Create HTTP server
	srv := server.NewServer(zapLogger, ledgerSvc, otpGate, withdrawalSvc, transferSvc,
		cfg.Ledger.DefaultPageSize, cfg.Ledger.MaxPageSize)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Error("Forced shutdown", zap.Error(err))
	}
	if redisClient != nil {
		redisClient.Close()
	}
}
