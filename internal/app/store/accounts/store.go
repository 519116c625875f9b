// internal/app/store/accounts/store.go
package accountstore

// Terminology: Account Identifiers
//   - AccountID / accountID / _id: The MongoDB ObjectID that uniquely identifies an account
//   - Username / username: The lower-cased email address the reader signs in with

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/system/normalize"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB AccountStore.
type Store struct {
	c *mongo.Collection
}

var _ store.AccountStore = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// EnsureIndexes creates the unique username index and the sparse unique
// reset token index (a live token identifies at most one account).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_accounts_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetName("uniq_accounts_reset_token").SetUnique(true).SetSparse(true),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return store.Wrap("accounts.ensure_indexes", err)
}

// Create inserts a new account after normalizing the username.
// Library and Wishlist are always stored as empty arrays, never null.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Username = normalize.Email(a.Username)
	if a.Library == nil {
		a.Library = []primitive.ObjectID{}
	}
	if a.Wishlist == nil {
		a.Wishlist = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, store.ErrDuplicate
		}
		return models.Account{}, store.Wrap("accounts.create", err)
	}
	return a, nil
}

// GetByID loads an account by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return s.findOne(ctx, "accounts.get_by_id", bson.M{"_id": id})
}

// GetByUsername looks up an account by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.findOne(ctx, "accounts.get_by_username", bson.M{"username": normalize.Email(username)})
}

// GetByResetToken finds the account holding token, provided it has not expired.
func (s *Store) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, "accounts.get_by_reset_token", bson.M{
		"reset_token":        token,
		"reset_token_expiry": bson.M{"$gt": now},
	})
}

// SetVerified marks the account verified. Calling it again is a no-op.
func (s *Store) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.updateOne(ctx, "accounts.set_verified",
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"verified": true, "updated_at": time.Now().UTC()}},
	)
}

// SetResetToken stores token and its expiry, replacing any earlier token.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return s.updateOne(ctx, "accounts.set_reset_token",
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"reset_token":        token,
			"reset_token_expiry": expiry,
			"updated_at":         time.Now().UTC(),
		}},
	)
}

// ConsumeResetToken swaps the password hash and clears the reset fields in one
// conditional update, so a token can only ever be redeemed once.
func (s *Store) ConsumeResetToken(ctx context.Context, id primitive.ObjectID, token string, now time.Time, passwordHash string) error {
	return s.updateOne(ctx, "accounts.consume_reset_token",
		bson.M{
			"_id":                id,
			"reset_token":        token,
			"reset_token_expiry": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
		},
	)
}

// ClearResetToken drops the reset fields if token is still the current one.
func (s *Store) ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.updateOne(ctx, "accounts.clear_reset_token",
		bson.M{"_id": id, "reset_token": token},
		bson.M{
			"$set":   bson.M{"updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
		},
	)
}

// AddBookRef appends bookID to the library or wishlist array.
func (s *Store) AddBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) error {
	return s.updateOne(ctx, "accounts.add_book_ref",
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{c.Field(): bookID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

// InsertBookRef pushes bookID into the library or wishlist array at pos.
func (s *Store) InsertBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID, pos int) error {
	if pos < 0 {
		pos = 0
	}
	return s.updateOne(ctx, "accounts.insert_book_ref",
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{c.Field(): bson.M{
				"$each":     []primitive.ObjectID{bookID},
				"$position": pos,
			}},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

// RemoveBookRef pulls bookID from the library or wishlist array. The filter
// requires the element to be present, so an absent reference matches nothing.
// The pre-update list comes back from the same atomic write and gives the
// position the reference held.
func (s *Store) RemoveBookRef(ctx context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{c.Field(): 1})

	var before models.Account
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, c.Field(): bookID},
		bson.M{
			"$pull": bson.M{c.Field(): bookID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		opts,
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, store.Wrap("accounts.remove_book_ref", err)
	}

	for i, ref := range before.Refs(c) {
		if ref == bookID {
			return i, nil
		}
	}
	return 0, nil
}

func (s *Store) findOne(ctx context.Context, op string, filter bson.M) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap(op, err)
	}
	return &a, nil
}

func (s *Store) updateOne(ctx context.Context, op string, filter, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return store.ErrDuplicate
		}
		return store.Wrap(op, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
