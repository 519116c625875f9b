// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/bookhunter/internal/app/features/errors"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/services/collection"
	"go.uber.org/zap"
)

// Handler owns the profile and shared-library read views.
type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	Accounts   *accounts.Service
	Collection *collection.Service
}

// NewHandler constructs a Handler bound to the account and collection services.
func NewHandler(acctSvc *accounts.Service, colSvc *collection.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		Accounts:   acctSvc,
		Collection: colSvc,
	}
}
