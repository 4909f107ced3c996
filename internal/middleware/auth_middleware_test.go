package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bussewa/booking-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-access-secret-key-123456789"

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testJWTSecret, time.Hour)
}

func protectedRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": userCtx.UserID,
			"phone":   userCtx.Phone,
			"roles":   userCtx.Roles,
		})
	})
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := setupTestJWTService()
	router := protectedRouter(jwtService)

	t.Run("Valid Token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(uuid.New(), "9812345678", []string{"admin"})
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "9812345678")
	})

	t.Run("Missing Header", func(t *testing.T) {
		w := doRequest(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
	})

	t.Run("Wrong Scheme", func(t *testing.T) {
		w := doRequest(router, "Basic abc123")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
	})

	t.Run("Empty Token", func(t *testing.T) {
		w := doRequest(router, "Bearer   ")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
	})

	t.Run("Garbage Token", func(t *testing.T) {
		w := doRequest(router, "Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("Expired Token", func(t *testing.T) {
		expiredService := jwt.NewService(testJWTSecret, -time.Hour)
		token, err := expiredService.GenerateAccessToken(uuid.New(), "9812345678", nil)
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("Refresh Token Rejected", func(t *testing.T) {
		// Signed with the shared secret but carrying the refresh type claim
		now := time.Now()
		refresh := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwt.Claims{
			UserID:    uuid.New(),
			TokenType: jwt.RefreshToken,
			RegisteredClaims: jwtlib.RegisteredClaims{
				ExpiresAt: jwtlib.NewNumericDate(now.Add(24 * time.Hour)),
				IssuedAt:  jwtlib.NewNumericDate(now),
			},
		})
		token, err := refresh.SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, exists := GetUserContext(c)
	assert.False(t, exists)

	want := UserContext{UserID: uuid.New(), Phone: "9812345678", Roles: []string{"admin"}}
	c.Set(UserContextKey, want)

	got, exists := GetUserContext(c)
	assert.True(t, exists)
	assert.Equal(t, want, got)
}
