// internal/domain/models/book.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names one of an account's two book lists.
type Collection string

const (
	Library  Collection = "library"
	Wishlist Collection = "wishlist"
)

// Valid reports whether c is Library or Wishlist.
func (c Collection) Valid() bool {
	return c == Library || c == Wishlist
}

// Field returns the Account document field that holds references for c.
func (c Collection) Field() string {
	return string(c)
}

// FlagField returns the Book document flag that marks membership in c.
func (c Collection) FlagField() string {
	if c == Wishlist {
		return "in_wishlist"
	}
	return "in_library"
}

// BookOwner is the owning account plus a username snapshot taken at creation.
type BookOwner struct {
	ID       primitive.ObjectID `bson:"id" json:"id"`
	Username string             `bson:"username" json:"username"`
}

// Book is a single entry owned by exactly one Account and tagged as belonging
// to its library or its wishlist, never both. Records are never edited in place.
type Book struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalID string             `bson:"external_id,omitempty" json:"external_id,omitempty"` // id from the search provider
	Title      string             `bson:"title" json:"title"`
	Author     string             `bson:"author,omitempty" json:"author,omitempty"`
	Link       string             `bson:"link,omitempty" json:"link,omitempty"`
	Publisher  string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	Thumbnail  string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Owner      BookOwner          `bson:"owner" json:"owner"`
	InLibrary  bool               `bson:"in_library" json:"in_library"`
	InWishlist bool               `bson:"in_wishlist" json:"in_wishlist"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// In reports whether the book is flagged for c.
func (b *Book) In(c Collection) bool {
	switch c {
	case Library:
		return b.InLibrary
	case Wishlist:
		return b.InWishlist
	}
	return false
}

// BookDraft carries the descriptive fields of a search result the user picked.
type BookDraft struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Link       string `json:"link"`
	Publisher  string `json:"publisher"`
	Thumbnail  string `json:"thumbnail"`
}
