package relay

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing token")
)

// Claims are the JWT claims carried by relay access tokens
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
}

// TokenVerifier validates relay access tokens. An empty secret
// disables verification entirely, which is the development default.
type TokenVerifier struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// TokenVerifierOption is a functional option for configuring the verifier
type TokenVerifierOption func(*TokenVerifier)

// WithIssuer sets the expected token issuer
func WithIssuer(issuer string) TokenVerifierOption {
	return func(v *TokenVerifier) { v.issuer = issuer }
}

// WithExpiration sets the lifetime of minted tokens
func WithExpiration(d time.Duration) TokenVerifierOption {
	return func(v *TokenVerifier) { v.expiration = d }
}

// NewTokenVerifier creates a verifier around an HMAC secret
func NewTokenVerifier(secret string, opts ...TokenVerifierOption) *TokenVerifier {
	v := &TokenVerifier{
		secret:     []byte(secret),
		issuer:     "adminsync-relay",
		expiration: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enabled reports whether token verification is active
func (v *TokenVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Mint issues a signed token for a client
func (v *TokenVerifier) Mint(clientID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    v.issuer,
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ClientID: clientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates a token and returns its claims
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware returns a gin handler that rejects requests without a
// valid token. Browsers cannot set headers on websocket upgrades, so
// the token is also accepted as a "token" query parameter.
func (v *TokenVerifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Enabled() {
			c.Next()
			return
		}

		tokenString := extractToken(c)
		if tokenString == "" {
			unauthorized(c, "MISSING_TOKEN", "Authentication token required")
			return
		}

		claims, err := v.Verify(tokenString)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
			}
			unauthorized(c, code, err.Error())
			return
		}

		c.Set("client_id", claims.ClientID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func unauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
