package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://project.supabase.co/auth/v1"

// createTestToken creates an unsigned JWT for tests with verification disabled.
func createTestToken(claims *Claims) string {
	headerJSON, _ := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	claimsJSON, _ := json.Marshal(claims)
	return base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON) + "."
}

// newSigningKey returns an RSA key and a keyfunc serving its public half.
func newSigningKey(t *testing.T) (*rsa.PrivateKey, keyfunc.Keyfunc) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	kf, err := keyfunc.NewJWKSetJSON(jwks)
	require.NoError(t, err)
	return key, kf
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func userClaims(issuer string, expiresIn time.Duration) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		Email: "user@example.com",
		Role:  "authenticated",
	}
}

func TestJWKSClient_ValidateToken_DevMode(t *testing.T) {
	client := newJWKSClient(&JWKSConfig{EnableVerification: false}, nil)
	defer client.Close()

	claims, err := client.ValidateToken(createTestToken(userClaims(testIssuer, time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestJWKSClient_ValidateToken_DevModeSkipsExpiry(t *testing.T) {
	client := newJWKSClient(&JWKSConfig{EnableVerification: false}, nil)

	_, err := client.ValidateToken(createTestToken(userClaims(testIssuer, -time.Hour)))
	assert.NoError(t, err)
}

func TestJWKSClient_ValidateToken_InvalidFormat(t *testing.T) {
	client := newJWKSClient(&JWKSConfig{EnableVerification: false}, nil)

	_, err := client.ValidateToken("not-a-valid-token")
	assert.Error(t, err)

	_, err = client.ValidateToken("")
	assert.Error(t, err)
}

func TestJWKSClient_ValidateToken_Verified(t *testing.T) {
	key, kf := newSigningKey(t)
	client := newJWKSClient(&JWKSConfig{EnableVerification: true}, map[string]keyfunc.Keyfunc{testIssuer: kf})

	claims, err := client.ValidateToken(signToken(t, key, userClaims(testIssuer, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestJWKSClient_ValidateToken_UnknownIssuer(t *testing.T) {
	key, kf := newSigningKey(t)
	client := newJWKSClient(&JWKSConfig{EnableVerification: true}, map[string]keyfunc.Keyfunc{testIssuer: kf})

	_, err := client.ValidateToken(signToken(t, key, userClaims("https://evil.example.com", time.Hour)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized issuer")
}

func TestJWKSClient_ValidateToken_Expired(t *testing.T) {
	key, kf := newSigningKey(t)
	client := newJWKSClient(&JWKSConfig{EnableVerification: true}, map[string]keyfunc.Keyfunc{testIssuer: kf})

	_, err := client.ValidateToken(signToken(t, key, userClaims(testIssuer, -time.Minute)))
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWKSClient_ValidateToken_WrongKey(t *testing.T) {
	_, kf := newSigningKey(t)
	otherKey, _ := newSigningKey(t)
	client := newJWKSClient(&JWKSConfig{EnableVerification: true}, map[string]keyfunc.Keyfunc{testIssuer: kf})

	_, err := client.ValidateToken(signToken(t, otherKey, userClaims(testIssuer, time.Hour)))
	assert.Error(t, err)
}

func TestJWKSClient_ValidateToken_RejectsHMAC(t *testing.T) {
	_, kf := newSigningKey(t)
	client := newJWKSClient(&JWKSConfig{EnableVerification: true}, map[string]keyfunc.Keyfunc{testIssuer: kf})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims(testIssuer, time.Hour))
	signed, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = client.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unexpected signing method"))
}
