// Package app wires the funnel, verification and broadcast components onto
// the Telegram runtime.
package app

import (
	"fmt"
	"sync/atomic"

	"github.com/Tombirdi473/telegrambot/core/cmd"
	"github.com/Tombirdi473/telegrambot/core/logger"
	tg "github.com/Tombirdi473/telegrambot/core/telegram"
	"github.com/Tombirdi473/telegrambot/core/telegram/state"
	"github.com/Tombirdi473/telegrambot/internal/cast"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
	"github.com/Tombirdi473/telegrambot/internal/verify"
)

// App holds the application graph. Transport-dependent pieces are built in
// wire once the bot instance exists.
type App struct {
	cfg      *Config
	registry *tg.Registry
	states   state.Manager
	store    *funnel.Store
	ledger   *funnel.Ledger

	funnel *funnel.Service
	verify *verify.Workflow
	cast   *cast.Dispatcher

	panelShown atomic.Bool
}

// New initializes logging and the transport-independent state.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if err := logger.InitLogger(&cfg.Core); err != nil {
		return nil, fmt.Errorf("app: logger init: %w", err)
	}
	return &App{
		cfg:      cfg,
		registry: tg.NewRegistry(),
		states:   state.NewMemoryManager(),
		store:    funnel.NewStore(),
		ledger:   funnel.NewLedger(),
	}, nil
}

// TelegramRunOptions builds the runtime options consumed by the core runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:   &a.cfg.Core,
		Registry: a.registry,
		Wire:     a.wire,
	}, nil
}

// LoadCarrier adapts Load to the runner's config hook.
func LoadCarrier(path string) (cmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap adapts New to the runner's bootstrap hook.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config carrier %T", carrier)
	}
	return New(cfg)
}
