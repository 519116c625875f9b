package password_test

import (
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/features/password"
	"github.com/dalemusser/bookhunter/internal/app/system/authutil"
	"github.com/dalemusser/bookhunter/internal/testutil"
)

func newHandler(t *testing.T) (*password.Handler, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	return password.NewHandler(env.AccountSvc, env.Sessions, uierrors.NewErrorLogger(env.Log), env.Log), env
}

// requestReset runs POST /forgot and returns the token from the mailed link.
func requestReset(t *testing.T, h *password.Handler, env *testutil.Env, username string) string {
	t.Helper()
	rec := testutil.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest("POST", "/forgot", map[string]string{"username": username}))
	rec.AssertStatus(t, http.StatusOK)

	mail, ok := env.Notifier.Last()
	if !ok {
		t.Fatal("expected a reset email")
	}
	prefix := testutil.TestBaseURL + "/reset/"
	i := strings.Index(mail.Body, prefix)
	if i < 0 {
		t.Fatalf("reset link missing from %q", mail.Body)
	}
	token := mail.Body[i+len(prefix):]
	if j := strings.IndexFunc(token, func(r rune) bool { return r == ' ' || r == '\n' || r == '\r' }); j >= 0 {
		token = token[:j]
	}
	return token
}

func resetRequest(method, token string, body any) *http.Request {
	var req *http.Request
	if body == nil {
		req = testutil.NewRequest(method, "/reset/"+token)
	} else {
		req = testutil.NewJSONRequest(method, "/reset/"+token, body)
	}
	return testutil.WithChiURLParam(req, "token", token)
}

func TestHandleForgot_UnknownAccount(t *testing.T) {
	h, env := newHandler(t)

	rec := testutil.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest("POST", "/forgot", map[string]string{"username": "ghost@example.com"}))

	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "No account with that email address exists.")
	if len(env.Notifier.Sent()) != 0 {
		t.Error("no email should be sent for an unknown account")
	}
}

func TestResetFlow(t *testing.T) {
	h, env := newHandler(t)
	u := env.Register(t, "reader@example.com", "old-password", true)

	token := requestReset(t, h, env, "Reader@Example.com")
	if len(token) != 2*authutil.ResetTokenBytes {
		t.Fatalf("token length: got %d, want %d", len(token), 2*authutil.ResetTokenBytes)
	}

	rec := testutil.NewRecorder()
	h.ServeReset(rec, resetRequest("GET", token, nil))
	rec.AssertStatus(t, http.StatusOK)

	// Mismatch leaves the token usable.
	rec = testutil.NewRecorder()
	h.HandleReset(rec, resetRequest("POST", token, map[string]string{"password": "a", "confirm": "b"}))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "Passwords do not match.")

	rec = testutil.NewRecorder()
	h.HandleReset(rec, resetRequest("POST", token, map[string]string{"password": "new-password", "confirm": "new-password"}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Success! Your password has been changed.")
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie after reset")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := env.AccountSvc.Authenticate(ctx, u.Username, "new-password"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := env.AccountSvc.Authenticate(ctx, u.Username, "old-password"); err == nil {
		t.Error("old password still accepted")
	}

	// The token is spent.
	rec = testutil.NewRecorder()
	h.ServeReset(rec, resetRequest("GET", token, nil))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Password reset token is invalid or has expired.")

	rec = testutil.NewRecorder()
	h.HandleReset(rec, resetRequest("POST", token, map[string]string{"password": "x", "confirm": "x"}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleReset_SecondRequestReplacesToken(t *testing.T) {
	h, env := newHandler(t)
	env.Register(t, "reader@example.com", "pw", true)

	first := requestReset(t, h, env, "reader@example.com")
	second := requestReset(t, h, env, "reader@example.com")
	if first == second {
		t.Fatal("expected a fresh token")
	}

	rec := testutil.NewRecorder()
	h.ServeReset(rec, resetRequest("GET", first, nil))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServeReset(rec, resetRequest("GET", second, nil))
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleReset_PasswordTooLong(t *testing.T) {
	h, env := newHandler(t)
	env.Register(t, "reader@example.com", "pw", true)
	token := requestReset(t, h, env, "reader@example.com")

	long := strings.Repeat("x", 73)
	rec := testutil.NewRecorder()
	h.HandleReset(rec, resetRequest("POST", token, map[string]string{"password": long, "confirm": long}))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "Password must be between 1 and 72 bytes.")

	rec = testutil.NewRecorder()
	h.ServeReset(rec, resetRequest("GET", token, nil))
	rec.AssertStatus(t, http.StatusOK)
}
