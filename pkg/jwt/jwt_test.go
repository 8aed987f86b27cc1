package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate("segredo", "u-1", "c-9", RoleAnalyst, "oraculo-icms", 5)
	require.NoError(t, err)

	userID, companyID, role, err := Parse("segredo", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "c-9", companyID)
	assert.Equal(t, RoleAnalyst, role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate("segredo", "u-1", "c-9", RoleAdmin, "oraculo-icms", 5)
	require.NoError(t, err)

	_, _, _, err = Parse("outro", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate("segredo", "u-1", "c-9", RoleAdmin, "oraculo-icms", -1)
	require.NoError(t, err)

	_, _, _, err = Parse("segredo", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "u", "c", RoleAdmin, "x", 5)
	assert.Error(t, err)
	_, _, _, err = Parse("", "token")
	assert.Error(t, err)
}
