package cli

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/kv"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/notify"
)

// app holds what every history-aware command needs
type app struct {
	cfg     *model.Config
	log     *slog.Logger
	bus     *notify.Bus
	backend kv.Backend
	store   *history.Store
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	backend, err := kv.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("open history backend: %w", err)
	}
	log.Debug("history backend opened", "backend", cfg.History.Backend, "path", cfg.History.Path)

	bus := notify.NewBus(16)
	return &app{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		backend: backend,
		store:   history.NewStore(backend, bus, log),
	}, nil
}

func (a *app) Close() error {
	a.bus.Close()
	if err := a.backend.Close(); err != nil {
		return fmt.Errorf("close history backend: %w", err)
	}
	return nil
}
