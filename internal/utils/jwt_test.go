package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u1", "Asha", "CUSTOMER", 6*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), tok.Exp, 5*time.Second)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "Asha", claims["name"])
	assert.Equal(t, "CUSTOMER", claims["role"])
}

func TestNewAccessToken_RequiresUser(t *testing.T) {
	_, err := NewAccessToken("s3cret", "", "", "CUSTOMER", time.Hour)
	assert.Error(t, err)
}
