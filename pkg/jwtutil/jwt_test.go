package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stroomtracker/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	token, err := j.GenerateToken("alice@example.com", 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	issuer := New(&config.JWTConfig{SigningKey: "issuer-key", ExpirationHours: 1})
	verifier := New(&config.JWTConfig{SigningKey: "other-key", ExpirationHours: 1})

	token, err := issuer.GenerateToken("alice@example.com", 1)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: -1})

	token, err := j.GenerateToken("alice@example.com", 1)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	_, err := j.ValidateToken("not.a.token")
	assert.Error(t, err)
}
