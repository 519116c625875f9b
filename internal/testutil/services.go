package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/services/collection"
	"github.com/dalemusser/bookhunter/internal/app/store/memstore"
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/mailer"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

// TestBaseURL is the base URL services build emailed links from in tests.
const TestBaseURL = "http://bookhunter.test"

// SentMail is one message captured by RecordingNotifier.
type SentMail struct {
	To, Subject, Body string
}

// RecordingNotifier is a mailer.Notifier that keeps every message in memory.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error // returned from every Send when set
}

var _ mailer.Notifier = (*RecordingNotifier)(nil)

// Send records the message.
func (n *RecordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentMail{To: to, Subject: subject, Body: body})
	return n.Err
}

// Sent returns a copy of every recorded message.
func (n *RecordingNotifier) Sent() []SentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentMail(nil), n.sent...)
}

// Last returns the most recent message, or false when nothing was sent.
func (n *RecordingNotifier) Last() (SentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return SentMail{}, false
	}
	return n.sent[len(n.sent)-1], true
}

// Env wires both services and a session manager on the in-memory store.
type Env struct {
	Accounts   *memstore.Accounts
	Books      *memstore.Books
	Notifier   *RecordingNotifier
	AccountSvc *accounts.Service
	Collection *collection.Service
	Sessions   *auth.SessionManager
	Log        *zap.Logger
}

// NewEnv builds an Env with a cheap bcrypt cost and a single-try retry policy.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	env := &Env{
		Accounts: memstore.NewAccounts(),
		Books:    memstore.NewBooks(),
		Notifier: &RecordingNotifier{},
		Sessions: sm,
		Log:      logger,
	}
	env.AccountSvc = accounts.New(env.Accounts, env.Notifier, accounts.Config{
		BaseURL:    TestBaseURL,
		SiteName:   "BookHunter",
		BcryptCost: bcrypt.MinCost,
	}, logger)
	env.Collection = collection.New(env.Accounts, env.Books, logger, collection.WithRetry(1, time.Millisecond))
	sm.SetUserFetcher(env.AccountSvc)
	return env
}

// Register creates an account through the service, optionally verifying it,
// and returns the matching test identity.
func (e *Env) Register(t *testing.T, username, password string, verified bool) TestUser {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()

	id, err := e.AccountSvc.Register(ctx, accounts.Profile{Username: username}, password)
	if err != nil {
		t.Fatalf("Register(%q) failed: %v", username, err)
	}
	if verified {
		if err := e.AccountSvc.Verify(ctx, id.Hex()); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
	}
	return TestUser{ID: id.Hex(), Username: username, Verified: verified}
}
