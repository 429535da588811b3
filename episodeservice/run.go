// Package episodeservice boots the episode service: configuration, store
// driver, suggestion ledger priming and the HTTP server with graceful
// shutdown.
package episodeservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/comado-8/EpisodeStocker-sub000/internal/api"
	"github.com/comado-8/EpisodeStocker-sub000/internal/config"
	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/platform/logger"
	"github.com/comado-8/EpisodeStocker-sub000/internal/search"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store/memory"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store/postgres"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store/sqlite"
	"github.com/comado-8/EpisodeStocker-sub000/internal/suggest"
)

// Run starts the episode service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("episode-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Episode service starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store driver unavailable")
		return err
	}

	ledger, err := bootLedger(ctx, st, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Suggestion ledger boot failed")
		return err
	}

	router := api.NewRouter(st, ledger)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// newStore selects the storage driver from configuration.
func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.SQLitePath)
	case "postgres":
		return postgres.New(ctx, cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
}

// storePersister adapts store.Suggestions to the ledger's write-behind hook.
type storePersister struct{ s store.Suggestions }

func (p storePersister) SaveSuggestion(ctx context.Context, s model.Suggestion) error {
	return p.s.Save(ctx, s)
}

// bootLedger loads persisted suggestions, seeds preset values for the
// enum-ish fields and starts the write-behind drain.
func bootLedger(ctx context.Context, st store.Store, log zerolog.Logger) (*suggest.Ledger, error) {
	records, err := st.Suggestions().List(ctx)
	if err != nil {
		return nil, err
	}
	ledger := suggest.New(log).WithPersister(storePersister{s: st.Suggestions()})
	ledger.Load(records)

	added := ledger.Prime(search.FieldMediaType, search.MediaPresets)
	added += ledger.Prime(search.FieldReaction, search.ReactionPresets)
	log.Info().
		Int("loaded", len(records)).
		Int("primed", added).
		Msg("Suggestion ledger ready")

	ledger.Start(ctx)
	return ledger, nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
