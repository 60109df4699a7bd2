package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tgcrm/internal/config"
	"tgcrm/internal/repository"
	"tgcrm/internal/server"
	"tgcrm/internal/telegram"
)

func main() {
	// .env is optional; environment variables may come from the host.
	_ = godotenv.Load()

	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Telegram Bot API client. An empty token is tolerated here; outbound
	// calls will fail until one is configured.
	if cfg.Telegram.BotToken == "" {
		logger.Warn("Telegram bot token is empty, outbound Bot API calls will fail")
	}
	bot := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL, logger)

	// Initialize and run the server
	srv := server.NewServer(db, bot, logger)
	srv.Run(cfg.Server.Port)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
