package collection

import "errors"

var (
	// ErrNotFound is returned when the book does not exist, belongs to another
	// account, is not in the named collection, or its reference is missing
	// from the account's list.
	ErrNotFound = errors.New("collection: book not found")
	// ErrAccountNotFound is returned when the owning account does not exist.
	ErrAccountNotFound = errors.New("collection: account not found")
	// ErrInvalidDraft is returned when the draft has no title after cleaning.
	ErrInvalidDraft = errors.New("collection: book title is required")
	// ErrInvalidCollection is returned for a destination other than library or wishlist.
	ErrInvalidCollection = errors.New("collection: unknown collection")
)
