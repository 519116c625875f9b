// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	msgCheckEmail = "Please check your email to verify your account."
	msgRequired   = "Email and password are required."
	msgDuplicate  = "A user with that email already exists."
	msgBadPass    = "Password must be between 1 and 72 bytes."
)

type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Accounts *accounts.Service
}

func NewHandler(svc *accounts.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		Accounts: svc,
	}
}

type signupRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type signupResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HandleSignup handles POST /signup.
//
// 201 {"id":"…","message":"Please check your email…"} on success. The account
// stays unverified until the emailed link is followed.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, err := h.Accounts.Register(ctx, accounts.Profile{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, req.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidRegistration):
		respond.Error(w, http.StatusBadRequest, msgRequired)
		return
	case errors.Is(err, accounts.ErrInvalidPassword):
		respond.Error(w, http.StatusBadRequest, msgBadPass)
		return
	case errors.Is(err, accounts.ErrDuplicateUsername):
		h.Log.Info("signup rejected: duplicate username")
		respond.Error(w, http.StatusConflict, msgDuplicate)
		return
	case err != nil:
		h.ErrLog.HandleServerError(w, r, err, "signup failed")
		return
	}

	respond.JSON(w, http.StatusCreated, signupResponse{ID: id.Hex(), Message: msgCheckEmail})
}
