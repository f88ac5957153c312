package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewPanelTokenManager("test-secret", 1)

	tokenString, err := m.GenerateToken("okul-a")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := m.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "okul-a", claims.TenantID)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	m := NewPanelTokenManager("secret-a", 1)
	other := NewPanelTokenManager("secret-b", 1)

	tokenString, err := m.GenerateToken("okul-a")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	m := NewPanelTokenManager("test-secret", 1)

	_, err := m.VerifyToken("bozuk.token.degeri")
	assert.Error(t, err)
}
