// internal/app/features/verify/routes.go
package verify

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.ServeVerify)
	return r
}
