package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-iam/aegis/internal/shared"
)

func testIdentity() Identity {
	return Identity{
		UserID:      42,
		Email:       "admin@example.com",
		Username:    "superadmin",
		Role:        "superadmin",
		Permissions: []string{"users:read", "users:write"},
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	raw, err := codec.Issue(testIdentity())
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "superadmin", claims.Username)
	assert.Equal(t, "superadmin", claims.Role)
	assert.Equal(t, []string{"users:read", "users:write"}, claims.Permissions)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerifyExpired(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute)
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	codec.now = func() time.Time { return issuedAt }
	raw, err := codec.Issue(testIdentity())
	require.NoError(t, err)

	// Still valid just inside the TTL.
	codec.now = func() time.Time { return issuedAt.Add(30 * time.Second) }
	_, err = codec.Verify(raw)
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyTampered(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	raw, err := codec.Issue(testIdentity())
	require.NoError(t, err)

	tampered := []byte(raw)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}

	_, err = codec.Verify(string(tampered))
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewCodec("issuer-secret", time.Hour)
	verifier := NewCodec("other-secret", time.Hour)

	raw, err := issuer.Issue(testIdentity())
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, shared.ErrInvalidToken, "input %q", raw)
	}
}
