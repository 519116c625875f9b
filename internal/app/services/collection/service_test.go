package collection_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/services/collection"
	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/store/memstore"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errConn = errors.New("connection reset by peer")

// refStore fails AddBookRef while addErr is set.
type refStore struct {
	*memstore.Accounts
	mu     sync.Mutex
	addErr error
}

func (s *refStore) AddBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) error {
	s.mu.Lock()
	err := s.addErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Accounts.AddBookRef(ctx, id, c, bookID)
}

func (s *refStore) failAdds(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addErr = err
}

// flakyBooks fails the next deleteFailures Delete calls with a storage error.
type flakyBooks struct {
	*memstore.Books
	mu             sync.Mutex
	deleteFailures int
	deleteCalls    int
}

func (b *flakyBooks) Delete(ctx context.Context, id primitive.ObjectID) error {
	b.mu.Lock()
	b.deleteCalls++
	fail := b.deleteFailures > 0
	if fail {
		b.deleteFailures--
	}
	b.mu.Unlock()
	if fail {
		return store.Wrap("books.delete", errConn)
	}
	return b.Books.Delete(ctx, id)
}

type fixture struct {
	svc      *collection.Service
	accounts *refStore
	books    *flakyBooks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: &refStore{Accounts: memstore.NewAccounts()},
		books:    &flakyBooks{Books: memstore.NewBooks()},
	}
	f.svc = collection.New(f.accounts, f.books, zap.NewNop(), collection.WithRetry(3, time.Millisecond))
	return f
}

func (f *fixture) account(t *testing.T, username string) models.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), models.Account{Username: username, Verified: true})
	require.NoError(t, err)
	return a
}

func (f *fixture) refs(t *testing.T, id primitive.ObjectID, c models.Collection) []primitive.ObjectID {
	t.Helper()
	a, err := f.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Refs(c)
}

var dune = models.BookDraft{
	ExternalID: "B1hSG45JCX4C",
	Title:      "Dune",
	Author:     "Frank Herbert",
	Link:       "https://books.google.com/books?id=B1hSG45JCX4C",
	Publisher:  "Penguin",
	Thumbnail:  "https://books.google.com/thumb.jpg",
}

/*─────────────────────────────────────────────────────────────────────────────*
| AddBook                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func TestAddBook_Library(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")

	id, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.NoError(t, err)

	lib, err := f.svc.Library(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lib, 1)
	got := lib[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "Frank Herbert", got.Author)
	assert.Equal(t, dune.Link, got.Link)
	assert.Equal(t, a.ID, got.Owner.ID)
	assert.Equal(t, "a@x.com", got.Owner.Username)
	assert.True(t, got.InLibrary)
	assert.False(t, got.InWishlist)

	wish, err := f.svc.Wishlist(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, wish)

	assert.Equal(t, []primitive.ObjectID{id}, f.refs(t, a.ID, models.Library))
	assert.Empty(t, f.refs(t, a.ID, models.Wishlist))
}

func TestAddBook_SanitizesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")

	_, err := f.svc.AddBook(ctx, a.ID, models.BookDraft{
		Title: " <b>Dune</b><script>x()</script> ",
		Link:  "javascript:alert(1)",
	}, models.Wishlist)
	require.NoError(t, err)

	wish, err := f.svc.Wishlist(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, wish, 1)
	assert.Equal(t, "Dune", wish[0].Title)
	assert.Empty(t, wish[0].Link)
}

func TestAddBook_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")

	_, err := f.svc.AddBook(ctx, a.ID, models.BookDraft{Title: "  "}, models.Library)
	assert.ErrorIs(t, err, collection.ErrInvalidDraft)

	_, err = f.svc.AddBook(ctx, a.ID, dune, models.Collection("shelf"))
	assert.ErrorIs(t, err, collection.ErrInvalidCollection)

	_, err = f.svc.AddBook(ctx, primitive.NewObjectID(), dune, models.Library)
	assert.ErrorIs(t, err, collection.ErrAccountNotFound)

	assert.Zero(t, f.books.Len(), "no record created")
}

func TestAddBook_RollsBackRecordWhenReferenceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	f.accounts.failAdds(store.Wrap("accounts.addBookRef", errConn))

	_, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))

	assert.Zero(t, f.books.Len(), "orphan record deleted")
	assert.Empty(t, f.refs(t, a.ID, models.Library))
	lib, err := f.svc.Library(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, lib)
}

func TestAddBook_RollbackRetriesDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	f.accounts.failAdds(store.Wrap("accounts.addBookRef", errConn))
	f.books.deleteFailures = 2

	_, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.Error(t, err)

	assert.Zero(t, f.books.Len())
	assert.Equal(t, 3, f.books.deleteCalls)
}

func TestAddBook_AccountVanishesMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	f.accounts.failAdds(store.ErrNotFound)

	_, err := f.svc.AddBook(ctx, a.ID, dune, models.Wishlist)
	assert.ErrorIs(t, err, collection.ErrAccountNotFound)
	assert.Zero(t, f.books.Len())
}

/*─────────────────────────────────────────────────────────────────────────────*
| RemoveBook                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRemoveBook_DeletesRecordAndReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	id, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveBook(ctx, a.ID, id, models.Library))

	lib, err := f.svc.Library(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, lib)
	assert.Empty(t, f.refs(t, a.ID, models.Library))
	_, err = f.books.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, f.svc.RemoveBook(ctx, a.ID, id, models.Library), collection.ErrNotFound)
}

func TestRemoveBook_ByIdentityKeepsOthersInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")

	var ids []primitive.ObjectID
	for _, title := range []string{"Dune", "Emma", "Ulysses"} {
		id, err := f.svc.AddBook(ctx, a.ID, models.BookDraft{Title: title}, models.Library)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, f.svc.RemoveBook(ctx, a.ID, ids[1], models.Library))

	assert.Equal(t, []primitive.ObjectID{ids[0], ids[2]}, f.refs(t, a.ID, models.Library))
	lib, err := f.svc.Library(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lib, 2)
	assert.Equal(t, "Dune", lib[0].Title)
	assert.Equal(t, "Ulysses", lib[1].Title)
}

func TestRemoveBook_CrossAccountNeverSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice@x.com")
	bob := f.account(t, "bob@x.com")
	id, err := f.svc.AddBook(ctx, alice.ID, dune, models.Library)
	require.NoError(t, err)

	err = f.svc.RemoveBook(ctx, bob.ID, id, models.Library)
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = f.books.GetByID(ctx, id)
	assert.NoError(t, err, "record untouched")
	assert.Equal(t, []primitive.ObjectID{id}, f.refs(t, alice.ID, models.Library))
}

func TestRemoveBook_WrongCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	id, err := f.svc.AddBook(ctx, a.ID, dune, models.Wishlist)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveBook(ctx, a.ID, id, models.Library), collection.ErrNotFound)
	assert.Equal(t, []primitive.ObjectID{id}, f.refs(t, a.ID, models.Wishlist))
	assert.ErrorIs(t, f.svc.RemoveBook(ctx, a.ID, id, models.Collection("")), collection.ErrInvalidCollection)
}

func TestRemoveBook_UnknownBook(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "a@x.com")
	err := f.svc.RemoveBook(context.Background(), a.ID, primitive.NewObjectID(), models.Library)
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestRemoveBook_MissingReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")

	// A record whose reference never made it onto the account.
	b, err := f.books.Create(ctx, models.Book{Title: "Dune", Owner: models.BookOwner{ID: a.ID}, InLibrary: true})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveBook(ctx, a.ID, b.ID, models.Library), collection.ErrNotFound)
	assert.Equal(t, 1, f.books.Len(), "nothing deleted on a missing reference")
}

func TestRemoveBook_RetriesTransientDeleteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	id, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.NoError(t, err)
	f.books.deleteFailures = 2

	require.NoError(t, f.svc.RemoveBook(ctx, a.ID, id, models.Library))
	assert.Zero(t, f.books.Len())
	assert.Empty(t, f.refs(t, a.ID, models.Library))
}

func TestRemoveBook_RestoresReferenceWhenDeleteKeepsFailing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "a@x.com")
	first, err := f.svc.AddBook(ctx, a.ID, dune, models.Library)
	require.NoError(t, err)
	second, err := f.svc.AddBook(ctx, a.ID, models.BookDraft{Title: "Emma"}, models.Library)
	require.NoError(t, err)
	f.books.deleteFailures = 100

	err = f.svc.RemoveBook(ctx, a.ID, first, models.Library)
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))
	assert.ErrorIs(t, err, errConn)

	// Both sides still agree and the reference is back in its old slot.
	_, err = f.books.GetByID(ctx, first)
	assert.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first, second}, f.refs(t, a.ID, models.Library))

	f.books.deleteFailures = 0
	assert.NoError(t, f.svc.RemoveBook(ctx, a.ID, first, models.Library), "retry after recovery succeeds")
	assert.Equal(t, []primitive.ObjectID{second}, f.refs(t, a.ID, models.Library))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Listing                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func TestAllLibraryBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice@x.com")
	bob := f.account(t, "bob@x.com")

	_, err := f.svc.AddBook(ctx, alice.ID, models.BookDraft{Title: "Dune"}, models.Library)
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bob.ID, models.BookDraft{Title: "Emma"}, models.Wishlist)
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bob.ID, models.BookDraft{Title: "Ulysses"}, models.Library)
	require.NoError(t, err)

	all, err := f.svc.AllLibraryBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dune", all[0].Title)
	assert.Equal(t, "Ulysses", all[1].Title)
}

/*─────────────────────────────────────────────────────────────────────────────*
| End to end                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, string, string, string) error { return nil }

func TestDuneScenario(t *testing.T) {
	ctx := context.Background()
	accountStore := memstore.NewAccounts()
	bookStore := memstore.NewBooks()
	acctSvc := accounts.New(accountStore, discardNotifier{}, accounts.Config{BcryptCost: bcrypt.MinCost}, zap.NewNop())
	collSvc := collection.New(accountStore, bookStore, zap.NewNop())

	id, err := acctSvc.Register(ctx, accounts.Profile{Username: "a@x.com"}, "spice")
	require.NoError(t, err)
	require.NoError(t, acctSvc.Verify(ctx, id.Hex()))

	a, err := acctSvc.Authenticate(ctx, "a@x.com", "spice")
	require.NoError(t, err)
	require.True(t, a.Verified)

	bookID, err := collSvc.AddBook(ctx, a.ID, models.BookDraft{Title: "Dune"}, models.Wishlist)
	require.NoError(t, err)

	wish, err := collSvc.Wishlist(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, wish, 1)
	assert.Equal(t, "Dune", wish[0].Title)
	assert.True(t, wish[0].InWishlist)
	assert.False(t, wish[0].InLibrary)

	require.NoError(t, collSvc.RemoveBook(ctx, a.ID, bookID, models.Wishlist))

	wish, err = collSvc.Wishlist(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, wish)
}
