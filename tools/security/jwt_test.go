package security

import (
	"testing"
	"time"

	"HelpLink/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, "u1")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	uid, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	require.Error(t, err)
	assert.Equal(t, errs.CodeAuthFailed, errs.CodeOf(err))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	past := time.Now().Add(-time.Hour)
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u1",
		"iat": past.Add(-time.Hour).Unix(),
		"exp": past.Unix(),
	})
	signed, err := tok.SignedString(opts.Secret)
	require.NoError(t, err)

	_, err = Verify(opts, signed)
	require.Error(t, err)
	assert.Equal(t, errs.CodeAuthFailed, errs.CodeOf(err))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify(DefaultOptions([]byte("test-secret")), "not.a.token")
	require.Error(t, err)
}

func TestUnsupportedAlg(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	opts.Alg = "RS256"

	_, _, err := Generate(opts, "u1")
	require.Error(t, err)
}
