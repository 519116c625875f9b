// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a registered reader with credentials and two owned collections.
//
// NOTE:
//   - ResetToken and ResetTokenExpiry are set and cleared together.
//   - Library and Wishlist hold Book ids in insertion order.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"` // lower-cased email
	FirstName    string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName     string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Verified     bool               `bson:"verified" json:"verified"`

	ResetToken       *string    `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	Library  []primitive.ObjectID `bson:"library" json:"library"`
	Wishlist []primitive.ObjectID `bson:"wishlist" json:"wishlist"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasLiveResetToken reports whether token matches the account's reset token
// and that token has not expired at now.
func (a *Account) HasLiveResetToken(token string, now time.Time) bool {
	if a.ResetToken == nil || a.ResetTokenExpiry == nil || token == "" {
		return false
	}
	return *a.ResetToken == token && a.ResetTokenExpiry.After(now)
}

// Refs returns the account's reference list for c.
func (a *Account) Refs(c Collection) []primitive.ObjectID {
	if c == Wishlist {
		return a.Wishlist
	}
	return a.Library
}
