// Package gates provides the authentication and verification checks that
// guard the collection and profile surfaces.
//
// # Two Layers
//
//  1. Route-Level Middleware (Authenticated, Verified)
//     Applied in routes.go files. Verified terminates the session of an
//     unverified account and points the reader at their inbox.
//
//  2. Handler-Level Gates (RequireAccount)
//     Used inside handlers that need the account id as an ObjectID. The gate
//     re-checks authentication and writes the 401 itself.
//
// RequireAuthenticated and RequireVerified are the pure checks both layers
// share; they take the identity and return a sentinel error.
package gates

import (
	"errors"
	"net/http"

	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated means no identity is present.
	ErrUnauthenticated = errors.New("gates: not logged in")
	// ErrUnverified means the identity has not completed email verification.
	ErrUnverified = errors.New("gates: email not verified")
)

const (
	msgUnauthenticated = "You must be logged in to do that."
	msgUnverified      = "Please check your email to verify your account before logging in."
)

// RequireAuthenticated succeeds iff an identity is present.
func RequireAuthenticated(u *auth.SessionUser) error {
	if u == nil || u.ID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// RequireVerified succeeds iff an identity is present and verified.
func RequireVerified(u *auth.SessionUser) error {
	if err := RequireAuthenticated(u); err != nil {
		return err
	}
	if !u.Verified {
		return ErrUnverified
	}
	return nil
}

// Result contains the result of a handler-level gate check.
type Result struct {
	AccountID primitive.ObjectID
	Username  string
	Verified  bool
	OK        bool
}

// RequireAccount ensures an authenticated identity with a well-formed id.
// On failure it writes a 401 and returns OK=false.
func RequireAccount(w http.ResponseWriter, r *http.Request) Result {
	u, _ := auth.CurrentUser(r)
	if err := RequireAuthenticated(u); err != nil {
		respond.Error(w, http.StatusUnauthorized, msgUnauthenticated)
		return Result{OK: false}
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, msgUnauthenticated)
		return Result{OK: false}
	}
	return Result{AccountID: oid, Username: u.Username, Verified: u.Verified, OK: true}
}

// Authenticated is route middleware rejecting requests without an identity.
func Authenticated(sm *auth.SessionManager) func(http.Handler) http.Handler {
	return sm.RequireSignedIn
}

// Verified is route middleware that lets only verified identities through.
// An unverified identity is signed out and told to check their email:
//   - HTML: 303 redirect to /login carrying a warning flash
//   - API:  403 with a JSON error body
//
// Unauthenticated requests are answered like Authenticated does.
func Verified(sm *auth.SessionManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := auth.CurrentUser(r)
			err := RequireVerified(u)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			logger.Info("unverified account blocked",
				zap.String("account_id", u.ID),
				zap.String("path", r.URL.Path))

			if err := sm.LogoutWithFlash(w, r, auth.FlashWarning, msgUnverified); err != nil {
				logger.Warn("terminate session of unverified account", zap.Error(err))
			}

			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if auth.WantsHTML(r) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			respond.Error(w, http.StatusForbidden, msgUnverified)
		}))
	}
}
