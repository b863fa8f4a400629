package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bultos-api/pkg/jwt"
)

const (
	secret = "test-secret"
	userID = "00000000-0000-0000-0000-000000000001"
)

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := jwt.Generate(secret, userID, "bodeguero", "bultos-api", 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	gotUser, gotRole, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "bodeguero", gotRole)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := jwt.Generate(secret, userID, "supervisor", "bultos-api", -1)
	require.NoError(t, err)

	_, _, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := jwt.Generate(secret, userID, "supervisor", "bultos-api", 60)
	require.NoError(t, err)

	_, _, err = jwt.Parse("otro-secret", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Generate("", userID, "supervisor", "bultos-api", 60)
	assert.Error(t, err)

	_, _, err = jwt.Parse("", "x.y.z")
	assert.Error(t, err)
}
