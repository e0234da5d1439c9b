package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-sales-crm/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tokens *auth.Tokens) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c), "requestId": GetRequestID(c)})
	})
	api.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	r := newRouter(tokens)
	sales, err := tokens.GenerateToken(4, "sales")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", sales).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Bearer nope").Code)

	w := do(r, "/api/me", "Bearer "+sales)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":4`)
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	r := newRouter(tokens)
	sales, _ := tokens.GenerateToken(4, "sales")
	admin, _ := tokens.GenerateToken(1, "admin")

	assert.Equal(t, http.StatusForbidden, do(r, "/api/admin", "Bearer "+sales).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/admin", "Bearer "+admin).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := do(r, "/", "")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Body.String())
}
