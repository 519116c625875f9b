package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Books is an in-memory BookStore. Listing order is insertion order.
type Books struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.Book
	order []primitive.ObjectID
}

var _ store.BookStore = (*Books)(nil)

func NewBooks() *Books {
	return &Books{byID: make(map[primitive.ObjectID]models.Book)}
}

func (s *Books) Create(_ context.Context, b models.Book) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if _, taken := s.byID[b.ID]; taken {
		return models.Book{}, store.ErrDuplicate
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.byID[b.ID] = b
	s.order = append(s.order, b.ID)
	return b, nil
}

func (s *Books) GetByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Books) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	s.order, _ = pull(s.order, id)
	return nil
}

func (s *Books) ListByOwner(_ context.Context, ownerID primitive.ObjectID, c models.Collection) ([]models.Book, error) {
	return s.filter(func(b *models.Book) bool {
		return b.Owner.ID == ownerID && b.In(c)
	}), nil
}

func (s *Books) ListInCollection(_ context.Context, c models.Collection) ([]models.Book, error) {
	return s.filter(func(b *models.Book) bool {
		return b.In(c)
	}), nil
}

// Len returns the number of stored records.
func (s *Books) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Books) filter(keep func(b *models.Book) bool) []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Book{}
	for _, id := range s.order {
		b := s.byID[id]
		if keep(&b) {
			out = append(out, b)
		}
	}
	return out
}
