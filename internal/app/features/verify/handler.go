// internal/app/features/verify/handler.go
package verify

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgVerified = "Email verification successful."
	msgBadLink  = "That verification link is not valid."
)

type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	SessionMgr *auth.SessionManager
	Accounts   *accounts.Service
}

func NewHandler(svc *accounts.Service, sm *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		SessionMgr: sm,
		Accounts:   svc,
	}
}

// ServeVerify handles GET /verify/{id}, the link mailed at registration.
// Browsers are sent to /login with a flash; API clients get JSON.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Accounts.Verify(ctx, id)
	if err != nil && !errors.Is(err, accounts.ErrNotFound) {
		h.ErrLog.HandleServerError(w, r, err, "verify account failed")
		return
	}

	if auth.WantsHTML(r) {
		kind, msg := auth.FlashSuccess, msgVerified
		if err != nil {
			kind, msg = auth.FlashError, msgBadLink
		}
		if ferr := h.SessionMgr.AddFlash(w, r, kind, msg); ferr != nil {
			h.Log.Warn("verify: add flash", zap.Error(ferr))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err != nil {
		respond.Error(w, http.StatusNotFound, msgBadLink)
		return
	}
	respond.Message(w, http.StatusOK, msgVerified)
}
