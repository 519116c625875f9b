// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"go.uber.org/zap"
)

const msgLoggedOut = "Successfully logged out."

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

// ServeLogout handles GET and POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	// Browsers land on /login, so keep the cookie alive long enough to carry
	// the confirmation flash. API clients get the cookie expired outright.
	var err error
	if auth.WantsHTML(r) {
		err = h.SessionMgr.LogoutWithFlash(w, r, auth.FlashSuccess, msgLoggedOut)
	} else {
		err = h.SessionMgr.Logout(w, r)
	}
	if err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if u != nil {
		h.Log.Info("logout", zap.String("account_id", u.ID))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation.
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	if auth.WantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	respond.Message(w, http.StatusOK, msgLoggedOut)
}
