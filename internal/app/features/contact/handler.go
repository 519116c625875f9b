// internal/app/features/contact/handler.go
package contact

import (
	"context"
	"net/http"
	"net/mail"
	"unicode/utf8"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bookhunter/internal/app/system/mailer"
	"github.com/dalemusser/bookhunter/internal/app/system/normalize"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	msgSent        = "Thank you! Email has been sent."
	msgRequired    = "Please include your email address and a message."
	msgBadEmail    = "Please enter a valid email address."
	msgTooLong     = "Your message is too long."
	msgUnavailable = "We could not send your message right now. Please try again later."

	maxFieldLen   = 200
	maxMessageLen = 5000
)

type Handler struct {
	Log      *zap.Logger
	Notifier mailer.Notifier
	To       string // operator address that receives submissions
	SiteName string
}

func NewHandler(notifier mailer.Notifier, to, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Notifier: notifier,
		To:       to,
		SiteName: siteName,
	}
}

type sendRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// HandleSend handles POST /send: the contact form. Every field is stripped
// of markup before it is mailed to the operator.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, uierrors.MsgBadRequest)
		return
	}

	data := mailer.ContactEmailData{
		SiteName: h.SiteName,
		Name:     htmlsanitize.Text(req.Name),
		Email:    normalize.Email(htmlsanitize.Text(req.Email)),
		Subject:  htmlsanitize.Text(req.Subject),
		Message:  htmlsanitize.Text(req.Message),
	}

	if data.Email == "" || data.Message == "" {
		respond.Error(w, http.StatusBadRequest, msgRequired)
		return
	}
	if addr, err := mail.ParseAddress(data.Email); err != nil || addr.Address != data.Email {
		respond.Error(w, http.StatusBadRequest, msgBadEmail)
		return
	}
	if utf8.RuneCountInString(data.Name) > maxFieldLen ||
		utf8.RuneCountInString(data.Subject) > maxFieldLen ||
		utf8.RuneCountInString(data.Message) > maxMessageLen {
		respond.Error(w, http.StatusBadRequest, msgTooLong)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	email := mailer.BuildContactEmail(data)
	if err := h.Notifier.Send(ctx, h.To, email.Subject, email.Body); err != nil {
		h.Log.Warn("contact message not queued", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	h.Log.Info("contact message queued")
	respond.Message(w, http.StatusOK, msgSent)
}
