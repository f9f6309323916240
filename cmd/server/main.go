package main

import (
	"go.uber.org/zap"

	"stroomtracker/internal/server"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/config"
	"stroomtracker/pkg/database"
	"stroomtracker/pkg/jwtutil"
	"stroomtracker/pkg/logger"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting stroomtracker...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	jwt := jwtutil.New(&cfg.JWT)

	e := server.New(cfg, store.NewGormStore(db), jwt, log)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
