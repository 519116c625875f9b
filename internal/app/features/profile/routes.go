// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/gates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes registers /profile, /user/{id} and /allbooks on r. Every route
// requires a verified account.
func Routes(r chi.Router, h *Handler, sm *auth.SessionManager, logger *zap.Logger) {
	r.Group(func(pr chi.Router) {
		pr.Use(gates.Verified(sm, logger))
		pr.Get("/profile", h.ServeProfile)
		pr.Get("/user/{id}", h.ServeUser)
		pr.Get("/allbooks", h.ServeAllBooks)
	})
}
