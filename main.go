package main

import (
	"impostor-arcane-be/internal/api/http"
	"impostor-arcane-be/internal/config"
	"impostor-arcane-be/internal/game"
	"impostor-arcane-be/internal/logger"
	"impostor-arcane-be/internal/service"
	"impostor-arcane-be/internal/state"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; viper owns the real configuration
	_ = godotenv.Load()

	cfg := config.InitConfig()

	logger.InitLogger(cfg.LogLevel)

	registry := service.NewRegistry(&cfg.Game, game.NopHooks{})
	defer registry.Close()

	appState := state.NewAppState(cfg, registry)

	http.RunServer(appState)
}
