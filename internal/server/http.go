// Package server provides the HTTP surface over the social and
// suggestion services using the chi router.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/amishardev/orbi-sub001/internal/app"
	"github.com/amishardev/orbi-sub001/internal/service/social"
	"github.com/amishardev/orbi-sub001/internal/service/suggest"
)

// NewRouter wires all routes.
func NewRouter(appCtx *app.AppContext, socialSvc *social.Service, suggestSvc *suggest.Service) http.Handler {
	h := &handler{appCtx: appCtx, social: socialSvc, suggest: suggestSvc}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(appCtx.Logger))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/follows/toggle", h.ToggleFollow)
		r.Get("/users/{id}/followers", h.ListFollowers)
		r.Get("/users/{id}/suggestions", h.GetSuggestions)
		r.Post("/users/{id}/suggestions/refresh", h.RefreshSuggestions)
	})

	return r
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func Start(appCtx *app.AppContext, handler http.Handler) error {
	addr := net.JoinHostPort(appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		appCtx.Logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
