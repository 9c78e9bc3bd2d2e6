package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_for_unit_tests_1234567890"

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("StrongPassword123!")
	require.NoError(t, err)
	assert.NotEqual(t, "StrongPassword123!", hash)

	assert.True(t, CheckPasswordHash("StrongPassword123!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("StrongPassword123!", "not-a-bcrypt-hash"))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("U-abc123", "ops@example.com", true, testSecret, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "U-abc123", claims.UserID())
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateJWTErrors(t *testing.T) {
	expired, err := GenerateJWT("U-1", "a@b.c", false, testSecret, -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := GenerateJWT("U-1", "a@b.c", false, "another-secret", time.Minute)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
		want  error
	}{
		{"malformed", "not.a.jwt", ErrTokenMalformed},
		{"expired", expired, ErrTokenExpired},
		{"wrong secret", wrongSecret, ErrTokenInvalid},
		{"missing subject", noSubject, ErrTokenClaimsInvalid},
		{"none algorithm", noneAlg, ErrUnexpectedSigningMethod},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := ValidateJWT(tc.token, testSecret)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLockout(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(3, 15*time.Minute)
	l.now = func() time.Time { return clock }

	assert.False(t, l.Locked("ops@example.com"))
	assert.Equal(t, 1, l.Fail("ops@example.com"))
	assert.Equal(t, 2, l.Fail("OPS@example.com "), "accounts are case-insensitive")
	assert.False(t, l.Locked("ops@example.com"))
	assert.Equal(t, 3, l.Fail("ops@example.com"))
	assert.True(t, l.Locked("ops@example.com"))
	assert.False(t, l.Locked("other@example.com"))

	// Failures age out of the window.
	clock = clock.Add(16 * time.Minute)
	assert.False(t, l.Locked("ops@example.com"))

	l.Fail("ops@example.com")
	l.Fail("ops@example.com")
	l.Reset("ops@example.com")
	assert.Equal(t, 1, l.Fail("ops@example.com"))
}

func TestLockoutForgetsStaleAccounts(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(3, 15*time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 100; i++ {
		l.Fail(fmt.Sprintf("user%d@example.com", i))
	}
	assert.Len(t, l.failures, 100)

	clock = clock.Add(16 * time.Minute)
	l.Fail("late@example.com")
	assert.Len(t, l.failures, 1, "expired accounts are swept")
	assert.Equal(t, 1, len(l.failures["late@example.com"]))
}

func TestNewLockoutDefaults(t *testing.T) {
	l := NewLockout(0, 0)
	assert.Equal(t, 5, l.maxAttempts)
	assert.Equal(t, 15*time.Minute, l.window)
}
