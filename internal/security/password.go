package security

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptPrefixes are the version markers this hasher's encodings start with.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// bcryptHashLen is the length of every encoded bcrypt hash.
const bcryptHashLen = 60

// PasswordHasher produces and checks salted bcrypt hashes.
type PasswordHasher struct {
	cost  int
	dummy []byte // compared against when no stored hash exists
}

// NewPasswordHasher creates a PasswordHasher with the given bcrypt cost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid bcrypt cost %d", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

// Hash returns a new self-describing hash of plaintext. Two calls with the
// same input produce different encodings.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed. A malformed stored hash is
// treated as a mismatch.
func (h *PasswordHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyNothing spends the same time as a real comparison and always fails.
// Used when the account does not exist so that response timing is uniform.
func (h *PasswordHasher) VerifyNothing(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}

// IsHash reports whether value looks like an encoding produced by this hasher.
func (h *PasswordHasher) IsHash(value string) bool {
	if len(value) != bcryptHashLen {
		return false
	}
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}
