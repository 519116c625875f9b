package bookstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	bookstore "github.com/dalemusser/bookhunter/internal/app/store/books"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/dalemusser/bookhunter/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *bookstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s := bookstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return s
}

func TestCreateGetDelete(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	b, err := s.Create(ctx, models.Book{
		Title:     "Dune",
		Author:    "Frank Herbert",
		Owner:     models.BookOwner{ID: owner, Username: "a@x.com"},
		InLibrary: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.ID.IsZero() {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Dune" || got.Owner.ID != owner || !got.InLibrary || got.InWishlist {
		t.Errorf("unexpected book %+v", got)
	}

	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.GetByID(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListByOwnerAndCollection(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	books := []models.Book{
		{Title: "Dune", Owner: models.BookOwner{ID: alice}, InLibrary: true, CreatedAt: base},
		{Title: "Emma", Owner: models.BookOwner{ID: alice}, InWishlist: true, CreatedAt: base.Add(time.Minute)},
		{Title: "Ulysses", Owner: models.BookOwner{ID: bob}, InLibrary: true, CreatedAt: base.Add(2 * time.Minute)},
		{Title: "Beloved", Owner: models.BookOwner{ID: alice}, InLibrary: true, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, b := range books {
		if _, err := s.Create(ctx, b); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	lib, err := s.ListByOwner(ctx, alice, models.Library)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(lib) != 2 || lib[0].Title != "Dune" || lib[1].Title != "Beloved" {
		t.Errorf("alice library: got %v", titles(lib))
	}

	wish, _ := s.ListByOwner(ctx, alice, models.Wishlist)
	if len(wish) != 1 || wish[0].Title != "Emma" {
		t.Errorf("alice wishlist: got %v", titles(wish))
	}

	all, err := s.ListInCollection(ctx, models.Library)
	if err != nil {
		t.Fatalf("ListInCollection failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all library: got %v", titles(all))
	}

	none, err := s.ListByOwner(ctx, primitive.NewObjectID(), models.Library)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func titles(bs []models.Book) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Title)
	}
	return out
}
