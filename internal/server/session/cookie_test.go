package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseID(t *testing.T) {
	secret := []byte("super-secret")

	v, err := signID("abc123", secret)
	require.NoError(t, err)

	id, err := parseID(v, secret)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestParseID_Rejects(t *testing.T) {
	secret := []byte("right")

	signedElsewhere, err := signID("abc", []byte("wrong"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "abc"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	emptyID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(secret)
	require.NoError(t, err)

	for name, value := range map[string]string{
		"other secret": signedElsewhere,
		"alg none":     noneAlg,
		"no id":        emptyID,
		"garbage":      "not.a.token",
		"raw id":       "abc",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseID(value, secret)
			assert.ErrorIs(t, err, ErrInvalidCookie)
		})
	}
}
