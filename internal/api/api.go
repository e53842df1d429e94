/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_calendar/internal/auth"
	"github.com/friendsincode/mimir_calendar/internal/calendar"
	"github.com/friendsincode/mimir_calendar/internal/config"
	"github.com/friendsincode/mimir_calendar/internal/models"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	cfg       *config.Config
	jwtSecret []byte
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, cfg *config.Config, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		cfg:       cfg,
		jwtSecret: []byte(cfg.JWTSigningKey),
		logger:    logger,
	}
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		// Public endpoints (no auth required)
		r.Post("/users", a.handleUserRegister)
		r.Post("/users/login", a.handleUserLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.With(a.requireRoles(models.RoleAdmin)).Get("/users", a.handleUsersList)

			pr.Route("/users/me", func(r chi.Router) {
				r.Get("/", a.handleUserGet)
				r.Put("/", a.handleUserUpdate)
				r.Delete("/", a.handleUserDelete)

				r.Route("/api-keys", func(r chi.Router) {
					r.Get("/", a.handleAPIKeysList)
					r.Post("/", a.handleAPIKeyCreate)
					r.Delete("/{keyID}", a.handleAPIKeyRevoke)
				})
			})

			pr.Route("/events", func(r chi.Router) {
				r.Get("/", a.handleEventsList)
				r.Post("/", a.handleEventCreate)
				r.Route("/{eventID}", func(r chi.Router) {
					r.Get("/", a.handleEventGet)
					r.Put("/", a.handleEventUpdate)
					r.Delete("/", a.handleEventDelete)
				})
			})

			pr.Get("/occurrences", a.handleOccurrencesList)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range claims.Roles {
				if _, exists := allowedSet[role]; exists {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeValidationError maps a validator rejection to a field-attributable
// 400 response.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *calendar.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":   "validation_failed",
		"field":   verr.Field,
		"message": verr.Message,
	})
	return true
}
