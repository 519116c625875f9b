// Package accounts implements the account lifecycle: registration with
// deferred email verification, password reset tokens and credential checks.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/store"
	"github.com/dalemusser/bookhunter/internal/app/system/authutil"
	"github.com/dalemusser/bookhunter/internal/app/system/mailer"
	"github.com/dalemusser/bookhunter/internal/app/system/metrics"
	"github.com/dalemusser/bookhunter/internal/app/system/normalize"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultResetTTL is how long a password reset link stays valid.
const DefaultResetTTL = time.Hour

// Config holds the settings the service needs from the app config.
type Config struct {
	BaseURL    string // scheme://host used in emailed links, no trailing slash
	SiteName   string
	ResetTTL   time.Duration
	BcryptCost int
}

// Profile is the registration input besides the password.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// Service is the AccountService. It is safe for concurrent use.
type Service struct {
	accounts store.AccountStore
	notifier mailer.Notifier
	cfg      Config
	log      *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
	hash     func(pw string) (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenSource replaces the random reset token generator.
func WithTokenSource(fn func() (string, error)) Option {
	return func(s *Service) { s.newToken = fn }
}

// WithHasher replaces bcrypt hashing.
func WithHasher(fn func(pw string) (string, error)) Option {
	return func(s *Service) { s.hash = fn }
}

// New creates the service. notifier receives verification, reset and
// password-changed messages; its errors are logged and never returned.
func New(accounts store.AccountStore, notifier mailer.Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "BookHunter"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &Service{
		accounts: accounts,
		notifier: notifier,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
		newToken: func() (string, error) { return authutil.RandomToken(authutil.ResetTokenBytes) },
	}
	s.hash = func(pw string) (string, error) { return authutil.HashPassword(pw, s.cfg.BcryptCost) }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

/*─────────────────────────────────────────────────────────────────────────────*
| Registration & verification                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Register creates an unverified account with empty collections and sends a
// verification link embedding the new account's id.
func (s *Service) Register(ctx context.Context, p Profile, rawPassword string) (id primitive.ObjectID, err error) {
	defer func() { s.count("register", err) }()

	username := normalize.Email(p.Username)
	if username == "" || rawPassword == "" {
		return primitive.NilObjectID, ErrInvalidRegistration
	}
	if !authutil.ValidPassword(rawPassword) {
		return primitive.NilObjectID, ErrInvalidPassword
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return primitive.NilObjectID, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return primitive.NilObjectID, err
	}

	hash, err := s.hash(rawPassword)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("hash password: %w", err)
	}

	a, err := s.accounts.Create(ctx, models.Account{
		Username:     username,
		FirstName:    normalize.Name(p.FirstName),
		LastName:     normalize.Name(p.LastName),
		PasswordHash: hash,
		Verified:     false,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent registration.
		return primitive.NilObjectID, ErrDuplicateUsername
	}
	if err != nil {
		return primitive.NilObjectID, err
	}

	s.log.Info("account registered", zap.String("account_id", a.ID.Hex()))

	email := mailer.BuildVerificationEmail(mailer.VerificationEmailData{
		SiteName: s.cfg.SiteName,
		Link:     s.cfg.BaseURL + "/verify/" + a.ID.Hex(),
	})
	s.notify(ctx, a.ID, username, email, "verification")

	return a.ID, nil
}

// Verify marks the account verified. Calling it again is a no-op success.
func (s *Service) Verify(ctx context.Context, accountID string) (err error) {
	defer func() { s.count("verify", err) }()

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(accountID))
	if err != nil {
		return ErrNotFound
	}
	if err := s.accounts.SetVerified(ctx, oid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("account verified", zap.String("account_id", oid.Hex()))
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Password reset                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// InitiatePasswordReset issues a fresh reset token, replacing any earlier
// one, and mails the reset link. Unknown usernames return ErrNoSuchAccount.
func (s *Service) InitiatePasswordReset(ctx context.Context, username string) (err error) {
	defer func() { s.count("reset_request", err) }()

	a, err := s.accounts.GetByUsername(ctx, normalize.Email(username))
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoSuchAccount
	}
	if err != nil {
		return err
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiry := s.now().UTC().Add(s.cfg.ResetTTL)
	if err := s.accounts.SetResetToken(ctx, a.ID, token, expiry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchAccount
		}
		return err
	}

	s.log.Info("password reset requested", zap.String("account_id", a.ID.Hex()))

	email := mailer.BuildResetEmail(mailer.ResetEmailData{
		SiteName:  s.cfg.SiteName,
		Link:      s.cfg.BaseURL + "/reset/" + token,
		ExpiresIn: mailer.FormatDuration(s.cfg.ResetTTL),
	})
	s.notify(ctx, a.ID, a.Username, email, "password_reset")
	return nil
}

// CheckResetToken reports whether token is currently live.
func (s *Service) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.liveAccount(ctx, token)
	return err
}

// ConsumeReset replaces the password of the account holding token.
//
// A missing or expired token yields ErrTokenInvalidOrExpired. A mismatched
// confirmation or unusable password leaves the token in place. Once those
// checks pass the token is spent: it is cleared even if the new credential
// cannot be stored. The returned account is the caller's cue to start a new
// session.
func (s *Service) ConsumeReset(ctx context.Context, token, newPassword, confirmPassword string) (_ *models.Account, err error) {
	defer func() { s.count("reset_consume", err) }()

	a, err := s.liveAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	if newPassword != confirmPassword {
		return nil, ErrPasswordMismatch
	}
	if !authutil.ValidPassword(newPassword) {
		return nil, ErrInvalidPassword
	}

	// Validated: finish regardless of the caller going away.
	ctx = context.WithoutCancel(ctx)
	token = normalize.Token(token)

	hash, err := s.hash(newPassword)
	if err != nil {
		if cerr := s.accounts.ClearResetToken(ctx, a.ID, token); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
			s.log.Error("clear reset token after failed hash",
				zap.String("account_id", a.ID.Hex()), zap.Error(cerr))
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.ConsumeResetToken(ctx, a.ID, token, s.now().UTC(), hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Expired, replaced or consumed since the lookup.
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}

	s.log.Info("password reset completed", zap.String("account_id", a.ID.Hex()))

	email := mailer.BuildPasswordChangedEmail(mailer.PasswordChangedEmailData{
		SiteName: s.cfg.SiteName,
		Username: a.Username,
	})
	s.notify(ctx, a.ID, a.Username, email, "password_changed")

	a.PasswordHash = hash
	a.ResetToken = nil
	a.ResetTokenExpiry = nil
	return a, nil
}

func (s *Service) liveAccount(ctx context.Context, token string) (*models.Account, error) {
	token = normalize.Token(token)
	if token == "" {
		return nil, ErrTokenInvalidOrExpired
	}
	a, err := s.accounts.GetByResetToken(ctx, token, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTokenInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Credentials                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Authenticate checks a username/password pair. Unknown usernames still pay
// for one bcrypt comparison so both failures take similar time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (_ *models.Account, err error) {
	defer func() { s.count("login", err) }()

	a, err := s.accounts.GetByUsername(ctx, normalize.Email(username))
	if errors.Is(err, store.ErrNotFound) {
		authutil.BurnCompare(password, s.cfg.BcryptCost)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !authutil.CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// GetByID returns the account or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(accountID))
	if err != nil {
		return nil, ErrNotFound
	}
	a, err := s.accounts.GetByID(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// notify hands the message to the Notifier. Failures are logged only: the
// account change it reports has already been committed.
func (s *Service) notify(ctx context.Context, accountID primitive.ObjectID, to string, e mailer.Email, kind string) {
	if err := s.notifier.Send(context.WithoutCancel(ctx), to, e.Subject, e.Body); err != nil {
		s.log.Warn("notification not sent",
			zap.String("account_id", accountID.Hex()),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

func (s *Service) count(event string, err error) {
	metrics.AccountEvents.WithLabelValues(event, outcome(err)).Inc()
}

// outcome labels an operation: ok, rejected (domain error) or error (storage).
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case store.IsStorageError(err):
		return "error"
	default:
		return "rejected"
	}
}
