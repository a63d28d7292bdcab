package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWTUtil("secret", time.Hour)

	token, err := j.GenerateToken("64f1c0ffee0000000000aaaa", "owner")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, role, err := j.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1c0ffee0000000000aaaa", userID)
	assert.Equal(t, "owner", role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	j := NewJWTUtil("secret", time.Hour)
	other := NewJWTUtil("different", time.Hour)

	token, err := j.GenerateToken("u1", "seeker")
	require.NoError(t, err)

	_, _, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	j := NewJWTUtil("secret", -time.Minute)

	token, err := j.GenerateToken("u1", "seeker")
	require.NoError(t, err)

	_, _, err = j.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	j := NewJWTUtil("secret", time.Hour)
	_, _, err := j.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestTokenTTL(t *testing.T) {
	j := NewJWTUtil("secret", time.Hour)

	token, err := j.GenerateToken("u1", "seeker")
	require.NoError(t, err)

	ttl := j.TokenTTL(token)
	assert.Greater(t, ttl, 55*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	assert.Equal(t, time.Duration(0), j.TokenTTL("not.a.token"))
}
