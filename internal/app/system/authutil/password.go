// Package authutil holds credential helpers shared by the account service.
package authutil

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("authutil: empty password")

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = bcrypt.DefaultCost

// dummyHashes holds one throwaway hash per work factor, built on first use.
// A failed login for a missing account compares against the hash whose cost
// matches stored passwords, so both failures take the same time.
var dummyHashes sync.Map // int -> []byte

// HashPassword returns the bcrypt hash of pw. Costs outside bcrypt's range
// fall back to DefaultCost.
func HashPassword(pw string, cost int) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), effectiveCost(cost))
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// BurnCompare spends one bcrypt comparison at cost without a real hash.
func BurnCompare(pw string, cost int) {
	_ = bcrypt.CompareHashAndPassword(DummyHash(cost), []byte(pw))
}

// DummyHash returns the shared throwaway hash for cost, using the same
// fallback as HashPassword for out-of-range costs.
func DummyHash(cost int) []byte {
	cost = effectiveCost(cost)
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("bookhunter-timing-equalizer"), cost)
	if err != nil {
		// Only reachable on a broken entropy source; GenerateFromPassword
		// fails the same way for real passwords then.
		return nil
	}
	actual, _ := dummyHashes.LoadOrStore(cost, h)
	return actual.([]byte)
}

func effectiveCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return DefaultCost
	}
	return cost
}
