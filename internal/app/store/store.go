// Package store declares the persistence capabilities the account and
// collection services depend on. Implementations live in subpackages:
// accounts and books (MongoDB) and memstore (in-process).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the lookup or the
	// conditional update.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique field already exists.
	ErrDuplicate = errors.New("store: duplicate key")
)

// StorageError wraps connectivity, decoding and constraint failures that are
// not one of the sentinels above.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Wrap returns err unchanged when it is nil or already a sentinel/StorageError,
// and wraps it in a StorageError otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// AccountStore persists accounts. Every mutating method is a single
// conditional update on one account document.
type AccountStore interface {
	// Create inserts a new account. Returns ErrDuplicate when the username exists.
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	// GetByResetToken finds the account whose reset token equals token and
	// whose expiry is after now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)

	SetVerified(ctx context.Context, id primitive.ObjectID) error
	// SetResetToken overwrites any previous token.
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error
	// ConsumeResetToken replaces the password hash and clears both reset fields,
	// but only while token is still the account's live token at now.
	ConsumeResetToken(ctx context.Context, id primitive.ObjectID, token string, now time.Time, passwordHash string) error
	// ClearResetToken clears both reset fields if token is still current.
	ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error

	// AddBookRef appends bookID to the account's list for c.
	AddBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) error
	// InsertBookRef puts bookID into the account's list for c at pos,
	// shifting later entries. A pos past the end appends.
	InsertBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID, pos int) error
	// RemoveBookRef removes bookID from the account's list for c and returns
	// the position it held. Returns ErrNotFound when the list does not
	// contain bookID.
	RemoveBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) (int, error)
}

// BookStore persists book records.
type BookStore interface {
	Create(ctx context.Context, b models.Book) (models.Book, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	// Delete removes a record. Returns ErrNotFound when it does not exist.
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListByOwner returns the owner's records flagged for c, oldest first.
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID, c models.Collection) ([]models.Book, error)
	// ListInCollection returns every record flagged for c, oldest first.
	ListInCollection(ctx context.Context, c models.Collection) ([]models.Book, error)
}
