package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/billsforynab/bills/internal/config"
	"github.com/billsforynab/bills/internal/database"
	"github.com/billsforynab/bills/pkg/ynab"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	db     *sql.DB
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context, cfg config.Application) (*Application, error) {
	db, err := database.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	deps := BuildDependencies(db, cfg)
	if cfg.YNAB.AccessToken != "" {
		log.Info("Using YNAB access token from configuration")
		deps.Session.Set(ynab.AccessTokenKey, cfg.YNAB.AccessToken)
	}
	if cfg.Demo.Enabled {
		log.Warn("Demo mode enabled, YNAB will not be contacted")
	}

	r := NewRouter(deps)

	srv := &http.Server{
		Handler:      withCORS(cfg.Host, r),
		Addr:         cfg.Listen,
		WriteTimeout: cfg.YNAB.Timeout + 15*time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, db: db, deps: deps, router: r, srv: srv}, nil
}

// NewRouter builds the router with middleware and every API route registered.
func NewRouter(deps *Dependencies) *mux.Router {
	r := mux.NewRouter()
	SetupMiddleware(r)
	RegisterRoutes(r, deps)
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (a *Application) close() {
	if err := a.db.Close(); err != nil {
		log.Errorf("failed to close store: %v", err)
	}
}
