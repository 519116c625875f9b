package accounts

import "errors"

var (
	// ErrInvalidRegistration is returned when the username or password is
	// empty or the password is too long to hash.
	ErrInvalidRegistration = errors.New("accounts: username and password are required")
	// ErrDuplicateUsername is returned when the username is already registered.
	ErrDuplicateUsername = errors.New("accounts: username already exists")
	// ErrNoSuchAccount is returned by InitiatePasswordReset for an unknown username.
	ErrNoSuchAccount = errors.New("accounts: no account with that username")
	// ErrNotFound is returned by Verify for an unknown account id.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrTokenInvalidOrExpired is returned when no account holds the reset
	// token or the token has expired.
	ErrTokenInvalidOrExpired = errors.New("accounts: reset token is invalid or has expired")
	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ. The token is left in place.
	ErrPasswordMismatch = errors.New("accounts: passwords do not match")
	// ErrInvalidPassword is returned when the new password is empty or too long.
	// The token is left in place.
	ErrInvalidPassword = errors.New("accounts: password must be 1 to 72 bytes")
	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// username or wrong password alike.
	ErrInvalidCredentials = errors.New("accounts: invalid username or password")
)
