package relay

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthedRouter(verifier *TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", verifier.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client_id": c.GetString("client_id")})
	})
	return r
}

func TestTokenVerifierMintAndVerify(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")

	token, err := verifier.Mint("admin-1")
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.ClientID)
	assert.Equal(t, "adminsync-relay", claims.Issuer)
}

func TestTokenVerifierRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenVerifier("secret-a").Mint("admin-1")
	require.NoError(t, err)

	_, err = NewTokenVerifier("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifierRejectsExpiredToken(t *testing.T) {
	verifier := NewTokenVerifier("test-secret", WithExpiration(-time.Minute))

	token, err := verifier.Mint("admin-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMiddlewareAcceptsBearerHeader(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	r := newAuthedRouter(verifier)

	token, err := verifier.Mint("admin-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin-1")
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	r := newAuthedRouter(verifier)

	token, err := verifier.Mint("admin-2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	r := newAuthedRouter(NewTokenVerifier("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	r := newAuthedRouter(NewTokenVerifier("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	verifier := NewTokenVerifier("")
	assert.False(t, verifier.Enabled())

	r := newAuthedRouter(verifier)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
