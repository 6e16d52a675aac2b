package state

import (
	"impostor-arcane-be/internal/config"
	"impostor-arcane-be/internal/service"
)

type AppState struct {
	Cfg      *config.AppConfig
	Registry *service.Registry
}

func NewAppState(
	cfg *config.AppConfig,
	registry *service.Registry,
) *AppState {
	return &AppState{
		Cfg:      cfg,
		Registry: registry,
	}
}
