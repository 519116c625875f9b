package accounts

import (
	"strings"

	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/domain/models"
)

// SessionUser projects an account onto the identity the session layer carries.
func SessionUser(a *models.Account) *auth.SessionUser {
	return &auth.SessionUser{
		ID:       a.ID.Hex(),
		Username: a.Username,
		Name:     strings.TrimSpace(a.FirstName + " " + a.LastName),
		Verified: a.Verified,
	}
}
