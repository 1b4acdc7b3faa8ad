package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apimiddleware "github.com/Conceptual-Machines/tintharm-api/internal/api/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Authenticate(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, apimiddleware.UserID(c))
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	valid, err := IssueToken(testSecret, "user-42", "a@b.c", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "user-42", "", -time.Hour)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", "user-42", "", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		mode     string
		headers  map[string]string
		status   int
		expected string
	}{
		{name: "no auth", mode: config.AuthModeNone, status: http.StatusOK, expected: ""},
		{name: "jwt valid", mode: config.AuthModeJWT, headers: map[string]string{"Authorization": "Bearer " + valid}, status: http.StatusOK, expected: "user-42"},
		{name: "jwt missing", mode: config.AuthModeJWT, status: http.StatusUnauthorized},
		{name: "jwt wrong scheme", mode: config.AuthModeJWT, headers: map[string]string{"Authorization": "Token " + valid}, status: http.StatusUnauthorized},
		{name: "jwt expired", mode: config.AuthModeJWT, headers: map[string]string{"Authorization": "Bearer " + expired}, status: http.StatusUnauthorized},
		{name: "jwt wrong key", mode: config.AuthModeJWT, headers: map[string]string{"Authorization": "Bearer " + wrongKey}, status: http.StatusUnauthorized},
		{name: "jwt no subject", mode: config.AuthModeJWT, headers: map[string]string{"Authorization": "Bearer " + noSubject}, status: http.StatusUnauthorized},
		{name: "gateway header", mode: config.AuthModeGateway, headers: map[string]string{"X-User-ID": "gw-7"}, status: http.StatusOK, expected: "gw-7"},
		{name: "gateway missing", mode: config.AuthModeGateway, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&config.Config{AuthMode: tt.mode, JWTSecret: testSecret})
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.expected, w.Body.String())
			}
		})
	}
}

func TestOptionalJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{AuthMode: config.AuthModeJWT, JWTSecret: testSecret}
	r := gin.New()
	r.GET("/", OptionalJWTAuth(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, apimiddleware.UserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}
