// internal/app/features/books/routes.go
package books

import (
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/gates"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns the subrouter for one collection, mounted at /library or
// /wishlist. Only verified accounts get through.
func Routes(h *Handler, c models.Collection, sm *auth.SessionManager, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(gates.Verified(sm, logger))
	r.Post("/", h.HandleAdd(c))
	r.Post("/{bookID}/remove", h.HandleRemove(c))
	return r
}
