// Package collection manages the books in an account's library and
// wishlist, keeping each account's reference lists and the book records in
// agreement.
//
// Adding writes the record first and then appends the reference; removing
// pulls the reference first and then deletes the record. Both are single
// per-document updates. When the second step fails, a compensating write
// undoes the first, retried with exponential backoff.
package collection

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bookhunter/internal/app/system/metrics"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Retry defaults for compensating writes and record deletion.
const (
	DefaultMaxTries        uint = 4
	DefaultInitialInterval      = 50 * time.Millisecond
)

// Service is the CollectionService. It is safe for concurrent use.
type Service struct {
	accounts store.AccountStore
	books    store.BookStore
	log      *zap.Logger

	maxTries uint
	initial  time.Duration
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithRetry sets how often and how fast failed writes are retried.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(s *Service) {
		s.maxTries = maxTries
		s.initial = initial
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(accounts store.AccountStore, books store.BookStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		books:    books,
		log:      logger,
		maxTries: DefaultMaxTries,
		initial:  DefaultInitialInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxTries == 0 {
		s.maxTries = 1
	}
	return s
}

// AddBook creates a record for draft owned by accountID, flagged for dest,
// and appends its id to the account's dest list. If the append fails the
// record is deleted again.
func (s *Service) AddBook(ctx context.Context, accountID primitive.ObjectID, draft models.BookDraft, dest models.Collection) (_ primitive.ObjectID, err error) {
	defer func() { s.count("add", dest, err) }()

	if !dest.Valid() {
		return primitive.NilObjectID, ErrInvalidCollection
	}
	clean := cleanDraft(draft)
	if clean.Title == "" {
		return primitive.NilObjectID, ErrInvalidDraft
	}

	owner, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return primitive.NilObjectID, ErrAccountNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}

	// From here on both writes run to completion or are compensated.
	ctx = context.WithoutCancel(ctx)

	book, err := s.books.Create(ctx, models.Book{
		ID:         primitive.NewObjectID(),
		ExternalID: clean.ExternalID,
		Title:      clean.Title,
		Author:     clean.Author,
		Link:       clean.Link,
		Publisher:  clean.Publisher,
		Thumbnail:  clean.Thumbnail,
		Owner:      models.BookOwner{ID: owner.ID, Username: owner.Username},
		InLibrary:  dest == models.Library,
		InWishlist: dest == models.Wishlist,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	if err := s.accounts.AddBookRef(ctx, owner.ID, dest, book.ID); err != nil {
		s.log.Warn("append book reference failed; deleting record",
			zap.String("account_id", owner.ID.Hex()),
			zap.String("book_id", book.ID.Hex()),
			zap.Error(err))

		s.compensate(ctx, "delete_orphan_record", book.ID, func() error {
			return ignoreNotFound(s.books.Delete(ctx, book.ID))
		})

		if errors.Is(err, store.ErrNotFound) {
			return primitive.NilObjectID, ErrAccountNotFound
		}
		return primitive.NilObjectID, err
	}

	s.log.Info("book added",
		zap.String("account_id", owner.ID.Hex()),
		zap.String("book_id", book.ID.Hex()),
		zap.String("collection", string(dest)))
	return book.ID, nil
}

// RemoveBook removes bookID from the account's source list and deletes the
// record. The book must exist, be owned by accountID and be flagged for
// source; otherwise ErrNotFound, so another account's books are never
// touched or revealed.
//
// If the record cannot be deleted the reference is put back at the position
// it held and a storage error is returned.
func (s *Service) RemoveBook(ctx context.Context, accountID, bookID primitive.ObjectID, source models.Collection) (err error) {
	defer func() { s.count("remove", source, err) }()

	if !source.Valid() {
		return ErrInvalidCollection
	}

	book, err := s.books.GetByID(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if book.Owner.ID != accountID || !book.In(source) {
		return ErrNotFound
	}

	ctx = context.WithoutCancel(ctx)

	pos, err := s.accounts.RemoveBookRef(ctx, accountID, source, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("book record without account reference",
				zap.String("account_id", accountID.Hex()),
				zap.String("book_id", bookID.Hex()),
				zap.String("collection", string(source)))
			return ErrNotFound
		}
		return err
	}

	delErr := s.retry(ctx, func() error {
		return ignoreNotFound(s.books.Delete(ctx, bookID))
	})
	if delErr != nil {
		s.log.Error("delete book record failed; restoring reference",
			zap.String("account_id", accountID.Hex()),
			zap.String("book_id", bookID.Hex()),
			zap.Error(delErr))

		s.compensate(ctx, "restore_reference", bookID, func() error {
			return s.accounts.InsertBookRef(ctx, accountID, source, bookID, pos)
		})
		return store.Wrap("collection.removeBook", delErr)
	}

	s.log.Info("book removed",
		zap.String("account_id", accountID.Hex()),
		zap.String("book_id", bookID.Hex()),
		zap.String("collection", string(source)))
	return nil
}

// Library returns the account's library books, oldest first.
func (s *Service) Library(ctx context.Context, accountID primitive.ObjectID) ([]models.Book, error) {
	return s.books.ListByOwner(ctx, accountID, models.Library)
}

// Wishlist returns the account's wishlist books, oldest first.
func (s *Service) Wishlist(ctx context.Context, accountID primitive.ObjectID) ([]models.Book, error) {
	return s.books.ListByOwner(ctx, accountID, models.Wishlist)
}

// AllLibraryBooks returns every library book across all accounts.
func (s *Service) AllLibraryBooks(ctx context.Context) ([]models.Book, error) {
	return s.books.ListInCollection(ctx, models.Library)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// retry runs op until it succeeds, returns a non-storage error, or the
// tries run out.
func (s *Service) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !store.IsStorageError(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxTries))
	return err
}

// compensate retries an undo step. A compensation that still fails leaves
// the two documents disagreeing; that is logged at Error with both ids.
func (s *Service) compensate(ctx context.Context, kind string, bookID primitive.ObjectID, undo func() error) {
	err := s.retry(ctx, undo)
	metrics.Compensations.WithLabelValues(kind, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Error("compensation failed",
			zap.String("kind", kind),
			zap.String("book_id", bookID.Hex()),
			zap.Error(err))
	}
}

func (s *Service) count(action string, c models.Collection, err error) {
	result := "ok"
	switch {
	case err == nil:
	case store.IsStorageError(err):
		result = "error"
	default:
		result = "rejected"
	}
	metrics.CollectionEvents.WithLabelValues(action, string(c), result).Inc()
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func cleanDraft(d models.BookDraft) models.BookDraft {
	return models.BookDraft{
		ExternalID: htmlsanitize.Text(d.ExternalID),
		Title:      htmlsanitize.Text(d.Title),
		Author:     htmlsanitize.Text(d.Author),
		Link:       htmlsanitize.URL(d.Link),
		Publisher:  htmlsanitize.Text(d.Publisher),
		Thumbnail:  htmlsanitize.URL(d.Thumbnail),
	}
}
