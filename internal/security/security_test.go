package security_test

import (
	"strings"
	"testing"
	"time"

	"oncoai/internal/security"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T) *security.PasswordHasher {
	t.Helper()
	h, err := security.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := newHasher(t)

	for _, pw := range []string{"ai2025", "password123", "ñandú-ß", " spaced out "} {
		hashed, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, hashed), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"x", hashed))
		assert.True(t, h.IsHash(hashed))
	}
}

func TestPasswordHasher_SaltedPerCall(t *testing.T) {
	h := newHasher(t)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("secret1", a))
	assert.True(t, h.Verify("secret1", b))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := newHasher(t)

	assert.NotPanics(t, func() {
		assert.False(t, h.Verify("secret", ""))
		assert.False(t, h.Verify("secret", "not-a-hash"))
		assert.False(t, h.Verify("secret", "$2b$10$truncated"))
	})
	assert.False(t, h.VerifyNothing("secret"))
}

func TestPasswordHasher_IsHash(t *testing.T) {
	h := newHasher(t)

	assert.True(t, h.IsHash("$2b$12$"+strings.Repeat("a", 53)))
	assert.True(t, h.IsHash("$2y$12$"+strings.Repeat("a", 53)))
	assert.False(t, h.IsHash("$2b$short"))
	assert.False(t, h.IsHash("plain-password"))
	assert.False(t, h.IsHash(""))
}

func TestNewPasswordHasher_InvalidCost(t *testing.T) {
	_, err := security.NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec, err := security.NewTokenCodec("test_jwt_secret")
	require.NoError(t, err)

	subjects := []string{"abc", "oncouser", strings.Repeat("z", 50), "user.name-01_@x"}
	for _, subject := range subjects {
		token, expiresAt, err := codec.Issue(subject, time.Hour)
		require.NoError(t, err)
		assert.True(t, expiresAt.After(time.Now()))

		got, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

func TestTokenCodec_ExpiresAtTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec, err := security.NewTokenCodec("test_jwt_secret", security.WithClock(clock.Now))
	require.NoError(t, err)

	token, expiresAt, err := codec.Issue("oncouser", 60*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(60*time.Minute), expiresAt)

	_, err = codec.Verify(token)
	require.NoError(t, err)

	clock.Advance(59*time.Minute + 59*time.Second)
	_, err = codec.Verify(token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
	assert.ErrorIs(t, err, security.ErrTokenExpired)
}

func TestTokenCodec_SubSecondIssue(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 900_000_000, time.UTC)}
	codec, err := security.NewTokenCodec("test_jwt_secret", security.WithClock(clock.Now))
	require.NoError(t, err)

	token, expiresAt, err := codec.Issue("oncouser", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), expiresAt)

	// Just before the reported expiry the token is still valid.
	clock.t = expiresAt.Add(-time.Millisecond)
	_, err = codec.Verify(token)
	require.NoError(t, err)

	clock.t = expiresAt
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, security.ErrTokenExpired)
}

func TestTokenCodec_Rejects(t *testing.T) {
	codec, err := security.NewTokenCodec("right-secret")
	require.NoError(t, err)
	other, err := security.NewTokenCodec("wrong-secret")
	require.NoError(t, err)

	foreign, _, err := other.Issue("oncouser", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "oncouser",
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "oncouser",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"wrong secret": foreign,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
		"wrong alg":    wrongAlg,
		"malformed":    "not.a.jwt",
		"empty":        "",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			subject, err := codec.Verify(token)
			assert.ErrorIs(t, err, security.ErrInvalidToken)
			assert.Empty(t, subject)
		})
	}
}

func TestTokenCodec_EmptyInputs(t *testing.T) {
	_, err := security.NewTokenCodec("")
	assert.Error(t, err)

	codec, err := security.NewTokenCodec("k")
	require.NoError(t, err)
	_, _, err = codec.Issue("", time.Hour)
	assert.Error(t, err)
}
