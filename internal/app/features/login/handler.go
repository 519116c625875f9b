// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/ratelimit"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const msgBadCredentials = "Invalid email or password."

type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	SessionMgr *auth.SessionManager
	Accounts   *accounts.Service
	Limiter    *ratelimit.LoginLimiter // nil disables throttling
}

func NewHandler(svc *accounts.Service, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		SessionMgr: sm,
		Accounts:   svc,
		Limiter:    limiter,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
	Redirect string `json:"redirect"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type loginPage struct {
	Return   string   `json:"return"`
	Success  []string `json:"success,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ServeLogin reports pending flash messages (verification results, gate
// rejections, logout confirmations) so the client can show them next to the
// login form.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, loginPage{
		Return:   urlutil.SafeReturn(query.Get(r, "return"), "", "/profile"),
		Success:  h.SessionMgr.Flashes(w, r, auth.FlashSuccess),
		Warnings: h.SessionMgr.Flashes(w, r, auth.FlashWarning),
		Errors:   h.SessionMgr.Flashes(w, r, auth.FlashError),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLoginPost checks the credentials and starts a session. Unverified
// accounts may sign in; the verified gate turns them away from collection
// routes.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, req.Username); !ok {
			w.Header().Set("Retry-After", "60")
			respond.Error(w, http.StatusTooManyRequests, reason)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acct, err := h.Accounts.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		h.Log.Info("login failed", zap.String("ip", ratelimit.ClientIP(r)))
		respond.Error(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "login lookup failed")
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetUsername(r, req.Username)
	}

	u := accounts.SessionUser(acct)
	if err := h.SessionMgr.Login(w, r, u); err != nil {
		h.ErrLog.HandleServerError(w, r, err, "login: save session", zap.String("account_id", u.ID))
		return
	}

	h.Log.Info("login succeeded", zap.String("account_id", u.ID))
	respond.JSON(w, http.StatusOK, loginResponse{
		ID:       u.ID,
		Username: u.Username,
		Verified: u.Verified,
		Redirect: urlutil.SafeReturn(query.Get(r, "return"), "", "/profile"),
	})
}
