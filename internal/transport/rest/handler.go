// Package rest provides the bearer-token-authenticated JSON API handlers.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/connectbuy/catalog/internal/service"
	"github.com/connectbuy/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type bearerTokenKey struct{}

// LoginDto is the credentials payload for POST /v1/auth/login.
type LoginDto struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Handler struct {
	listing  service.ListingService
	auth     service.AuthService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new API handler with the provided services.
func NewHandler(listing service.ListingService, auth service.AuthService, logger *slog.Logger) *Handler {
	return &Handler{
		listing:  listing,
		auth:     auth,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ping", h.Ping)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.requireBearer)
			r.Post("/auth/logout", h.Logout)
			r.Post("/auth/refresh", h.Refresh)
			r.Get("/products", h.ListProducts)
		})
	})
}

// Ping is an unauthenticated liveness probe.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]any{
		"success": true,
		"message": "ConnectBuy API is working!",
	})
}

// Login checks the credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var credentials LoginDto
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(credentials); err != nil {
		if web.RespondValidationErrors(w, mLogger, err) {
			return
		}
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		if errors.Is(err, cerrors.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Login rejected", "email", credentials.Email)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Email or password is incorrect.")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error during login", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to log in")
		return
	}
	web.RespondData(w, mLogger, http.StatusOK, token)
}

// Logout revokes the current token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.auth.Logout(r.Context(), bearerToken(r.Context())); err != nil {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid token")
		return
	}
	web.RespondData(w, mLogger, http.StatusOK, map[string]string{"message": "Session closed successfully"})
}

// Refresh revokes the current token and returns a replacement.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	token, err := h.auth.Refresh(r.Context(), bearerToken(r.Context()))
	if err != nil {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid token")
		return
	}
	web.RespondData(w, mLogger, http.StatusOK, token)
}

// ListProducts returns one page of products plus pagination metadata.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	params := r.URL.Query()
	if err := h.validate.Var(params.Get("sort_direction"), "omitempty,oneof=asc desc"); err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, "sort_direction must be asc or desc")
		return
	}

	page, err := h.listing.List(r.Context(), params)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(page.Items))
	web.RespondData(w, mLogger, http.StatusOK, map[string]any{
		"products":   page.Items,
		"pagination": page.Pagination,
	})
}

// requireBearer verifies the Authorization header and enriches the context
// with the owning user ID and the raw token.
func (h *Handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.loggerWithReqID(r)
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Bearer token is required")
			return
		}

		userID, err := h.auth.Verify(r.Context(), tokenString)
		if err != nil {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := web.WithUserID(r.Context(), userID)
		ctx = context.WithValue(ctx, bearerTokenKey{}, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken retrieves the raw bearer token stored by requireBearer.
func bearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
