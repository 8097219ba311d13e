package testhelpers

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTestJWT(t *testing.T) {
	token := GenerateTestJWT("user-1", "ana@example.com")

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.Empty(t, parts[2], "unsigned token has empty signature")

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"sub":"user-1"`)
	assert.Contains(t, string(payload), `"email":"ana@example.com"`)

	assert.True(t, strings.HasPrefix(GenerateTestJWTWithBearer("u", ""), "Bearer "))
}
