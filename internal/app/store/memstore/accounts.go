// Package memstore provides in-process AccountStore and BookStore
// implementations. They back the "memory" store_backend used for local
// development and the service and handler tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/system/normalize"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Accounts is an in-memory AccountStore. Each method holds the lock for the
// whole read-modify-write, matching the per-document atomicity of MongoDB.
type Accounts struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Account
}

var _ store.AccountStore = (*Accounts)(nil)

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[primitive.ObjectID]*models.Account)}
}

func (s *Accounts) Create(_ context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Username = normalize.Email(a.Username)
	for _, existing := range s.byID {
		if existing.Username == a.Username {
			return models.Account{}, store.ErrDuplicate
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, taken := s.byID[a.ID]; taken {
		return models.Account{}, store.ErrDuplicate
	}
	if a.Library == nil {
		a.Library = []primitive.ObjectID{}
	}
	if a.Wishlist == nil {
		a.Wishlist = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.byID[a.ID] = cloneAccount(&a)
	return *cloneAccount(&a), nil
}

func (s *Accounts) GetByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Accounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = normalize.Email(username)
	for _, a := range s.byID {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Accounts) GetByResetToken(_ context.Context, token string, now time.Time) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.byID {
		if a.HasLiveResetToken(token, now) {
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Accounts) SetVerified(_ context.Context, id primitive.ObjectID) error {
	return s.update(id, func(a *models.Account) error {
		a.Verified = true
		return nil
	})
}

func (s *Accounts) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return s.update(id, func(a *models.Account) error {
		a.ResetToken = &token
		a.ResetTokenExpiry = &expiry
		return nil
	})
}

func (s *Accounts) ConsumeResetToken(_ context.Context, id primitive.ObjectID, token string, now time.Time, passwordHash string) error {
	return s.update(id, func(a *models.Account) error {
		if !a.HasLiveResetToken(token, now) {
			return store.ErrNotFound
		}
		a.PasswordHash = passwordHash
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
		return nil
	})
}

func (s *Accounts) ClearResetToken(_ context.Context, id primitive.ObjectID, token string) error {
	return s.update(id, func(a *models.Account) error {
		if a.ResetToken == nil || *a.ResetToken != token {
			return store.ErrNotFound
		}
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
		return nil
	})
}

func (s *Accounts) AddBookRef(_ context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) error {
	return s.update(id, func(a *models.Account) error {
		if c == models.Wishlist {
			a.Wishlist = append(a.Wishlist, bookID)
		} else {
			a.Library = append(a.Library, bookID)
		}
		return nil
	})
}

func (s *Accounts) InsertBookRef(_ context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID, pos int) error {
	return s.update(id, func(a *models.Account) error {
		refs := a.Refs(c)
		if pos < 0 {
			pos = 0
		}
		if pos > len(refs) {
			pos = len(refs)
		}
		out := make([]primitive.ObjectID, 0, len(refs)+1)
		out = append(out, refs[:pos]...)
		out = append(out, bookID)
		out = append(out, refs[pos:]...)
		setRefs(a, c, out)
		return nil
	})
}

func (s *Accounts) RemoveBookRef(_ context.Context, id primitive.ObjectID, c models.Collection, bookID primitive.ObjectID) (int, error) {
	pos := -1
	err := s.update(id, func(a *models.Account) error {
		refs, at := pull(a.Refs(c), bookID)
		if at < 0 {
			return store.ErrNotFound
		}
		pos = at
		setRefs(a, c, refs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pos, nil
}

func setRefs(a *models.Account, c models.Collection, refs []primitive.ObjectID) {
	if c == models.Wishlist {
		a.Wishlist = refs
	} else {
		a.Library = refs
	}
}

// update applies fn to the stored account under the lock. The change is
// discarded when fn returns an error.
func (s *Accounts) update(id primitive.ObjectID, fn func(a *models.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	next := cloneAccount(current)
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	s.byID[id] = next
	return nil
}

// pull removes every occurrence of id, like MongoDB's $pull.
// pull removes every occurrence of id and returns the index of the first,
// or -1 when id is absent.
func pull(refs []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, int) {
	out := make([]primitive.ObjectID, 0, len(refs))
	first := -1
	for i, ref := range refs {
		if ref == id {
			if first < 0 {
				first = i
			}
			continue
		}
		out = append(out, ref)
	}
	return out, first
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.Library = append([]primitive.ObjectID{}, a.Library...)
	c.Wishlist = append([]primitive.ObjectID{}, a.Wishlist...)
	if a.ResetToken != nil {
		token := *a.ResetToken
		c.ResetToken = &token
	}
	if a.ResetTokenExpiry != nil {
		expiry := *a.ResetTokenExpiry
		c.ResetTokenExpiry = &expiry
	}
	return &c
}

// Len reports how many accounts are stored.
func (s *Accounts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
