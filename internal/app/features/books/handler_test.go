package books_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bookhunter/internal/app/features/books"
	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/dalemusser/bookhunter/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newHandler(t *testing.T) (*books.Handler, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	return books.NewHandler(env.Collection, uierrors.NewErrorLogger(env.Log), env.Log), env
}

func addBook(t *testing.T, h *books.Handler, u testutil.TestUser, c models.Collection, title string) string {
	t.Helper()
	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/"+string(c), models.BookDraft{Title: title, Author: "Someone"}), u)
	rec := testutil.NewRecorder()
	h.HandleAdd(c)(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		ID string `json:"id"`
	}
	rec.DecodeJSON(t, &body)
	return body.ID
}

func removeReq(u testutil.TestUser, c models.Collection, bookID string) *http.Request {
	req := testutil.NewAuthenticatedRequest("POST", "/"+string(c)+"/"+bookID+"/remove", u)
	return testutil.WithChiURLParam(req, "bookID", bookID)
}

func TestHandleAdd_FilesBookUnderCollection(t *testing.T) {
	h, env := newHandler(t)
	u := env.Register(t, "reader@example.com", "pw", true)

	libID := addBook(t, h, u, models.Library, "Dune")
	wishID := addBook(t, h, u, models.Wishlist, "Emma")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	acct, err := env.AccountSvc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(acct.Library) != 1 || acct.Library[0].Hex() != libID {
		t.Errorf("library refs: got %v, want [%s]", acct.Library, libID)
	}
	if len(acct.Wishlist) != 1 || acct.Wishlist[0].Hex() != wishID {
		t.Errorf("wishlist refs: got %v, want [%s]", acct.Wishlist, wishID)
	}
}

func TestHandleAdd_RequiresTitle(t *testing.T) {
	h, env := newHandler(t)
	u := env.Register(t, "reader@example.com", "pw", true)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/library", models.BookDraft{Title: "  <b></b> "}), u)
	rec := testutil.NewRecorder()
	h.HandleAdd(models.Library)(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "A book needs a title.")
	if env.Books.Len() != 0 {
		t.Errorf("no record should be stored, have %d", env.Books.Len())
	}
}

func TestHandleAdd_AccountGone(t *testing.T) {
	h, _ := newHandler(t)
	ghost := testutil.VerifiedReader()

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/library", models.BookDraft{Title: "Dune"}), ghost)
	rec := testutil.NewRecorder()
	h.HandleAdd(models.Library)(rec, req)

	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "Your account no longer exists.")
}

func TestHandleRemove(t *testing.T) {
	h, env := newHandler(t)
	alice := env.Register(t, "alice@example.com", "pw", true)
	bob := env.Register(t, "bob@example.com", "pw", true)
	bookID := addBook(t, h, alice, models.Library, "Dune")

	tests := []struct {
		name   string
		user   testutil.TestUser
		c      models.Collection
		id     string
		status int
	}{
		{"other account", bob, models.Library, bookID, http.StatusNotFound},
		{"wrong collection", alice, models.Wishlist, bookID, http.StatusNotFound},
		{"malformed id", alice, models.Library, "nope", http.StatusNotFound},
		{"unknown id", alice, models.Library, primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"owner", alice, models.Library, bookID, http.StatusNoContent},
		{"already removed", alice, models.Library, bookID, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleRemove(tt.c)(rec, removeReq(tt.user, tt.c, tt.id))
			rec.AssertStatus(t, tt.status)
			if tt.status == http.StatusNotFound {
				rec.AssertContains(t, "Book not found.")
			}
		})
	}

	if env.Books.Len() != 0 {
		t.Errorf("expected record deleted, have %d", env.Books.Len())
	}
}

func TestRoutes_UnverifiedAccountIsTurnedAway(t *testing.T) {
	h, env := newHandler(t)
	u := env.Register(t, "pending@example.com", "pw", false)

	// Sign in through the session manager so the gate sees a real cookie.
	login := httptest.NewRecorder()
	if err := env.Sessions.Login(login, httptest.NewRequest("POST", "/login", nil), u.SessionUser()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	r := chi.NewRouter()
	r.Use(env.Sessions.LoadSessionUser)
	r.Mount("/library", books.Routes(h, models.Library, env.Sessions, env.Log))

	req := testutil.NewJSONRequest("POST", "/library", models.BookDraft{Title: "Dune"})
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Please check your email to verify your account before logging in.")
	if env.Books.Len() != 0 {
		t.Error("unverified account must not add books")
	}
}

func TestRoutes_AnonymousIsRejected(t *testing.T) {
	h, env := newHandler(t)

	r := chi.NewRouter()
	r.Use(env.Sessions.LoadSessionUser)
	r.Mount("/wishlist", books.Routes(h, models.Wishlist, env.Sessions, env.Log))

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/wishlist", models.BookDraft{Title: "Dune"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
