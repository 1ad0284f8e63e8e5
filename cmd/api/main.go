package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/config"
	"wykonczymy/internal/database"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/server"
	"wykonczymy/internal/services"
	"wykonczymy/internal/validator"
)

// @title           Wykonczymy API
// @version         1.0
// @description     Cash-register ledger for a finishing-works company: registers, investments, worker saldo, settlements and reconciliation.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Operator API key for /ops endpoints.

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	coord, err := server.NewCoordination(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := coord.Close(); err != nil {
			log.Warnf("redis close error: %v", err)
		}
	}()
	publisher, locker := coord.Publisher, coord.Locker

	db := dbManager.DB()
	engine := services.NewBalanceEngine()
	policy := services.LoginPolicy{MaxFailedAttempts: cfg.MaxFailedLogins, LockoutDuration: cfg.LockoutDuration}

	router := server.NewRouter(server.Services{
		Users:          services.NewUserService(db, publisher, policy),
		CashRegisters:  services.NewCashRegisterService(db, publisher),
		Investments:    services.NewInvestmentService(db, publisher),
		Categories:     services.NewOtherCategoryService(db, publisher),
		Media:          services.NewMediaService(db, publisher),
		Transactions:   services.NewTransactionService(db, engine, publisher),
		Settlements:    services.NewSettlementService(db, engine, publisher),
		Reconciliation: services.NewReconciliationService(db, locker, publisher),
	}, server.Options{
		OperatorAPIKey: cfg.OperatorAPIKey,
		Health:         dbManager,
		RequestLogging: true,
		Swagger:        !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Wykonczymy API on port %s", cfg.Port)
		if !cfg.IsProduction() {
			log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
