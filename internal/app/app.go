// Package app wires the bot together: storage, plugins, the websocket
// session and the optional status surface.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/account"
	"github.com/vovakirdan/wirebot/internal/client"
	"github.com/vovakirdan/wirebot/internal/config"
	"github.com/vovakirdan/wirebot/internal/plugin"
	"github.com/vovakirdan/wirebot/internal/plugins/meme"
	"github.com/vovakirdan/wirebot/internal/plugins/quote"
	"github.com/vovakirdan/wirebot/internal/proto"
	"github.com/vovakirdan/wirebot/internal/state"
	"github.com/vovakirdan/wirebot/internal/status"
	"github.com/vovakirdan/wirebot/internal/store"
	"github.com/vovakirdan/wirebot/internal/store/sqlite"
)

// App owns every long-lived component of one bot process.
type App struct {
	cfg    config.Config
	log    *zerolog.Logger
	store  store.Store
	client *client.Client
	status *stdhttp.Server
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	cache := state.NewCache()
	parser := proto.NewParser(cache, logger)

	registry := plugin.NewRegistry(logger)
	registry.Register(meme.New(st, cfg.PluginPrefixes, cfg.CaseSensitive, logger))
	registry.Register(quote.New(st, cfg.PluginPrefixes, cfg.CaseSensitive, logger))

	acct := account.New(cfg.LoginURL, logger)
	cl := client.New(cfg, cache, parser, registry, acct, logger)

	var statusServer *stdhttp.Server
	if cfg.StatusAddr != "" {
		statusServer = status.NewServer(cfg.StatusAddr, cache, logger)
	}

	return &App{
		cfg:    cfg,
		log:    logger,
		store:  st,
		client: cl,
		status: statusServer,
	}, nil
}

// Run connects the bot and blocks until the session ends or the context is
// canceled.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if a.status != nil {
		go func() {
			a.log.Info().Str("addr", a.status.Addr).Msg("status server listening")
			if err := a.status.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				a.log.Error().Err(err).Msg("status server")
			}
		}()
	}

	if err := a.client.Connect(ctx); err != nil {
		return err
	}

	if a.cfg.Console {
		go a.client.RunConsole(os.Stdin)
	}

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		a.client.Shutdown()
	case <-a.client.Done():
	}

	a.client.Wait()
	return nil
}

// cleanup closes the status server and the database.
func (a *App) cleanup() {
	if a.status != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.status.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("failed to stop status server")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
