package main

import (
	"context"
	"fmt"

	"wykonczymy/internal/config"
	"wykonczymy/internal/database"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/server"
	"wykonczymy/internal/services"
)

// app is the slice of the service layer the operator commands need.
type app struct {
	users          services.UserServicer
	reconciliation services.ReconciliationServicer

	close func()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	coord, err := server.NewCoordination(ctx, cfg)
	if err != nil {
		_ = dbManager.Close()
		return nil, err
	}

	db := dbManager.DB()
	policy := services.LoginPolicy{MaxFailedAttempts: cfg.MaxFailedLogins, LockoutDuration: cfg.LockoutDuration}
	return &app{
		users:          services.NewUserService(db, coord.Publisher, policy),
		reconciliation: services.NewReconciliationService(db, coord.Locker, coord.Publisher),
		close: func() {
			log := logger.Get()
			if err := coord.Close(); err != nil {
				log.Warnf("redis close error: %v", err)
			}
			if err := dbManager.Close(); err != nil {
				log.Warnf("database close error: %v", err)
			}
		},
	}, nil
}
