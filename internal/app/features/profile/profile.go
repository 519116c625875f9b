// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/gates"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const msgUserNotFound = "User not found."

// profileView is the JSON shape of a reader's profile.
type profileView struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Name     string        `json:"name,omitempty"`
	Library  []models.Book `json:"library"`
	Wishlist []models.Book `json:"wishlist"`
}

// ServeProfile handles GET /profile for the signed-in account.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAccount(w, r)
	if !res.OK {
		return
	}
	h.serve(w, r, res.AccountID.Hex())
}

// ServeUser handles GET /user/{id}: another reader's library and wishlist.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, accountID string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acct, err := h.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, msgUserNotFound)
		return
	}
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "load profile account failed")
		return
	}

	view, err := h.load(ctx, acct)
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "load profile books failed",
			zap.String("account_id", acct.ID.Hex()))
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *Handler) load(ctx context.Context, a *models.Account) (profileView, error) {
	lib, err := h.Collection.Library(ctx, a.ID)
	if err != nil {
		return profileView{}, err
	}
	wish, err := h.Collection.Wishlist(ctx, a.ID)
	if err != nil {
		return profileView{}, err
	}
	return profileView{
		ID:       a.ID.Hex(),
		Username: a.Username,
		Name:     strings.TrimSpace(a.FirstName + " " + a.LastName),
		Library:  lib,
		Wishlist: wish,
	}, nil
}

// ServeAllBooks handles GET /allbooks: every library book across readers.
func (h *Handler) ServeAllBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	books, err := h.Collection.AllLibraryBooks(ctx)
	if err != nil {
		h.ErrLog.HandleServerError(w, r, err, "list all library books failed")
		return
	}
	respond.JSON(w, http.StatusOK, struct {
		Books []models.Book `json:"books"`
	}{Books: books})
}
