// Package app contains the application setup for the catalog service.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/connectbuy/catalog/internal/config"
	"github.com/connectbuy/catalog/internal/service"
	"github.com/connectbuy/catalog/internal/storage"
	"github.com/connectbuy/catalog/internal/store"
	"github.com/connectbuy/catalog/internal/transport/rest"
	"github.com/connectbuy/catalog/internal/transport/web"
	"github.com/connectbuy/catalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	Listing     service.ListingService
	Products    service.ProductService
	Auth        service.AuthService
	Blobs       storage.BlobStore
	Sessions    sessions.Store
	SessionName string
	Logger      *slog.Logger
}

// SetupDependencies wires the stores, services, blob storage and session
// store together.
func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	blobs, err := storage.NewFsStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to set up blob storage: %w", err)
	}

	productStore := store.NewPgProductStore(dbPool)
	userStore := store.NewPgUserStore(dbPool)

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Secure = cfg.Session.Secure

	return &Dependencies{
		Listing:     service.NewListing(productStore),
		Products:    service.NewProducts(productStore, blobs, logger),
		Auth:        service.NewAuth(userStore, []byte(cfg.Auth.Secret), cfg.Auth.Issuer, cfg.Auth.TTL),
		Blobs:       blobs,
		Sessions:    sessionStore,
		SessionName: cfg.Session.Name,
		Logger:      logger,
	}, nil
}

// SetupHttpHandler initializes the router and routes for the catalog service.
// Used by handler tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	apiHandler := rest.NewHandler(deps.Listing, deps.Auth, deps.Logger)
	apiHandler.RegisterRoutes(mux)

	webHandler := web.NewHandler(deps.Listing, deps.Products, deps.Blobs, deps.Sessions, deps.SessionName, deps.Logger)
	webHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
