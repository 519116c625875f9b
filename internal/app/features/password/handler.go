// internal/app/features/password/handler.go
package password

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/normalize"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgNoAccount    = "No account with that email address exists."
	msgBadToken     = "Password reset token is invalid or has expired."
	msgMismatch     = "Passwords do not match."
	msgBadPassword  = "Password must be between 1 and 72 bytes."
	msgTokenOK      = "Choose a new password."
	msgChanged      = "Success! Your password has been changed."
	msgSentTemplate = "An e-mail has been sent to %s with further instructions."
)

// Handler serves the forgot-password and reset-link endpoints.
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

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forgot                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type forgotRequest struct {
	Username string `json:"username"`
}

// HandleForgot issues a reset token and mails the link.
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Accounts.InitiatePasswordReset(ctx, req.Username)
	if errors.Is(err, accounts.ErrNoSuchAccount) {
		respond.Error(w, http.StatusNotFound, msgNoAccount)
		return
	}
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "initiate password reset failed")
		return
	}

	respond.Message(w, http.StatusOK, fmt.Sprintf(msgSentTemplate, normalize.Email(req.Username)))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /reset/{token}                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeReset reports whether the emailed token can still be used.
func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Accounts.CheckResetToken(ctx, chi.URLParam(r, "token"))
	if errors.Is(err, accounts.ErrTokenInvalidOrExpired) {
		respond.Error(w, http.StatusBadRequest, msgBadToken)
		return
	}
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "check reset token failed")
		return
	}
	respond.Message(w, http.StatusOK, msgTokenOK)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /reset/{token}                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type resetRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type resetResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// HandleReset sets the new password and signs the account in.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	acct, err := h.Accounts.ConsumeReset(ctx, chi.URLParam(r, "token"), req.Password, req.Confirm)
	switch {
	case errors.Is(err, accounts.ErrTokenInvalidOrExpired):
		respond.Error(w, http.StatusBadRequest, msgBadToken)
		return
	case errors.Is(err, accounts.ErrPasswordMismatch):
		respond.Error(w, http.StatusUnprocessableEntity, msgMismatch)
		return
	case errors.Is(err, accounts.ErrInvalidPassword):
		respond.Error(w, http.StatusUnprocessableEntity, msgBadPassword)
		return
	case err != nil:
		h.ErrLog.HandleServerError(w, r, err, "consume password reset failed")
		return
	}

	u := accounts.SessionUser(acct)
	if err := h.SessionMgr.Login(w, r, u); err != nil {
		// The password is already changed; the user can sign in by hand.
		h.Log.Warn("reset: start session", zap.String("account_id", u.ID), zap.Error(err))
	}

	respond.JSON(w, http.StatusOK, resetResponse{Message: msgChanged, Redirect: "/profile"})
}
