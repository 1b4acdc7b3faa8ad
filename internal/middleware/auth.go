package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apimiddleware "github.com/Conceptual-Machines/tintharm-api/internal/api/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix = "Bearer"
)

var errMissingSubject = errors.New("token has no subject")

// Claims carries the caller identity. The subject is the user ID that owns
// stored compositions.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth middleware validates HS256 bearer tokens and attaches the subject to
// the context. Tokens are verified statelessly; there is no user table.
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// OptionalJWTAuth is like JWTAuth but doesn't abort if the token is missing or invalid
func OptionalJWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := ParseToken(tokenString, cfg.JWTSecret); err == nil {
				attach(c, claims)
			}
		}
		c.Next()
	}
}

// ParseToken verifies signature, expiry and subject.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// IssueToken signs a token for subject. A zero ttl issues a token without
// expiry.
func IssueToken(secret, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == bearerPrefix {
		return parts[1]
	}
	return ""
}

func attach(c *gin.Context, claims *Claims) {
	c.Set(apimiddleware.ContextUserID, claims.Subject)
	c.Set(apimiddleware.ContextUserEmail, claims.Email)
	c.Set(apimiddleware.ContextUserRole, claims.Role)
}

// Authenticate picks the middleware for cfg.AuthMode.
func Authenticate(cfg *config.Config) gin.HandlerFunc {
	switch {
	case cfg.IsJWTMode():
		return JWTAuth(cfg)
	case cfg.IsGatewayMode():
		return apimiddleware.GatewayAuth()
	default:
		return apimiddleware.NoAuth()
	}
}
