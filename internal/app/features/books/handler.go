// internal/app/features/books/handler.go
package books

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/collection"
	"github.com/dalemusser/bookhunter/internal/app/system/gates"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgNeedTitle       = "A book needs a title."
	msgBookNotFound    = "Book not found."
	msgAccountNotFound = "Your account no longer exists. Please sign up again."
	msgBadCollection   = "Unknown collection."
)

// Handler adds and removes books on the signed-in account's library and
// wishlist.
type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	Collection *collection.Service
}

func NewHandler(svc *collection.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		Collection: svc,
	}
}

type addResponse struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
}

// HandleAdd returns the POST handler that files a search result under c.
func (h *Handler) HandleAdd(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := gates.RequireAccount(w, r)
		if !res.OK {
			return
		}

		var draft models.BookDraft
		if err := respond.Decode(r, &draft); err != nil {
			respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		id, err := h.Collection.AddBook(ctx, res.AccountID, draft, c)
		if h.writeErr(w, r, err, "add book failed", res.AccountID, c) {
			return
		}
		respond.JSON(w, http.StatusCreated, addResponse{ID: id.Hex(), Collection: string(c)})
	}
}

// HandleRemove returns the POST handler that removes {bookID} from c.
func (h *Handler) HandleRemove(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := gates.RequireAccount(w, r)
		if !res.OK {
			return
		}

		bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookID"))
		if err != nil {
			respond.Error(w, http.StatusNotFound, msgBookNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		err = h.Collection.RemoveBook(ctx, res.AccountID, bookID, c)
		if h.writeErr(w, r, err, "remove book failed", res.AccountID, c) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeErr maps service errors to responses and reports whether it wrote one.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error, msg string, accountID primitive.ObjectID, c models.Collection) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, collection.ErrInvalidDraft):
		respond.Error(w, http.StatusBadRequest, msgNeedTitle)
	case errors.Is(err, collection.ErrNotFound):
		respond.Error(w, http.StatusNotFound, msgBookNotFound)
	case errors.Is(err, collection.ErrAccountNotFound):
		respond.Error(w, http.StatusNotFound, msgAccountNotFound)
	case errors.Is(err, collection.ErrInvalidCollection):
		respond.Error(w, http.StatusBadRequest, msgBadCollection)
	default:
		h.ErrLog.HandleServerError(w, r, err, msg,
			zap.String("account_id", accountID.Hex()),
			zap.String("collection", string(c)))
	}
	return true
}
