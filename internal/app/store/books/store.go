// internal/app/store/books/store.go
package bookstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB BookStore.
type Store struct {
	c *mongo.Collection
}

var _ store.BookStore = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("books")}
}

// EnsureIndexes creates the owner/collection listing indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner.id", Value: 1}, {Key: "in_library", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_books_owner_library"),
		},
		{
			Keys:    bson.D{{Key: "owner.id", Value: 1}, {Key: "in_wishlist", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_books_owner_wishlist"),
		},
		{
			Keys:    bson.D{{Key: "in_library", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_books_library"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return store.Wrap("books.ensure_indexes", err)
}

// Create inserts a book record. The caller sets the owner and the collection flag.
func (s *Store) Create(ctx context.Context, b models.Book) (models.Book, error) {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Book{}, store.Wrap("books.create", err)
	}
	return b, nil
}

// GetByID loads a book record by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var b models.Book
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap("books.get_by_id", err)
	}
	return &b, nil
}

// Delete removes a book record by ObjectID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return store.Wrap("books.delete", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's books in collection c, oldest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, c models.Collection) ([]models.Book, error) {
	return s.find(ctx, "books.list_by_owner", bson.M{"owner.id": ownerID, c.FlagField(): true})
}

// ListInCollection returns every book in collection c across all owners.
func (s *Store) ListInCollection(ctx context.Context, c models.Collection) ([]models.Book, error) {
	return s.find(ctx, "books.list_in_collection", bson.M{c.FlagField(): true})
}

func (s *Store) find(ctx context.Context, op string, filter bson.M) ([]models.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, store.Wrap(op, err)
	}
	defer cur.Close(ctx)

	out := []models.Book{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, store.Wrap(op, err)
	}
	return out, nil
}
