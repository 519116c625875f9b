// internal/app/features/password/routes.go
package password

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ForgotRoutes mounts POST / for reset requests. limit may be nil.
func ForgotRoutes(h *Handler, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if limit != nil {
		r.Use(limit)
	}
	r.Post("/", h.HandleForgot)
	return r
}

// ResetRoutes mounts the token endpoints the reset email links to.
func ResetRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServeReset)
	r.Post("/{token}", h.HandleReset)
	return r
}
