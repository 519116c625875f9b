package accounts

import (
	"context"
	"errors"

	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/timeouts"
	"go.uber.org/zap"
)

var _ auth.UserFetcher = (*Service)(nil)

// FetchUser loads the session identity for an account id so verification
// done in another tab takes effect on the next request. Returns nil when
// the account no longer exists or cannot be read.
func (s *Service) FetchUser(ctx context.Context, id string) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	a, err := s.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("fetch session user", zap.String("account_id", id), zap.Error(err))
		}
		return nil
	}
	return SessionUser(a)
}
