package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/system/authutil"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data directly in the
// database, bypassing the stores under test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAccount inserts an account with the given username and password.
func (f *Fixtures) CreateAccount(ctx context.Context, username, password string, verified bool) models.Account {
	f.t.Helper()

	hash, err := authutil.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}

	now := time.Now().UTC()
	a := models.Account{
		ID:           primitive.NewObjectID(),
		Username:     username,
		FirstName:    "Test",
		LastName:     "Reader",
		PasswordHash: hash,
		Verified:     verified,
		Library:      []primitive.ObjectID{},
		Wishlist:     []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("accounts").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return a
}

// CreateBook inserts a book owned by owner, flagged for c, without touching
// the owner's reference list.
func (f *Fixtures) CreateBook(ctx context.Context, owner models.Account, title string, c models.Collection) models.Book {
	f.t.Helper()

	b := models.Book{
		ID:         primitive.NewObjectID(),
		Title:      title,
		Author:     "Test Author",
		Owner:      models.BookOwner{ID: owner.ID, Username: owner.Username},
		InLibrary:  c == models.Library,
		InWishlist: c == models.Wishlist,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := f.db.Collection("books").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test book: %v", err)
	}
	return b
}
