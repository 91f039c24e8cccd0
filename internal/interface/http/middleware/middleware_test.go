package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T, manager *jwt.Manager) *gin.Engine {
	auth := middleware.NewAuthMiddleware(manager)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(zaptest.NewLogger(t)), middleware.Metrics())
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.MustGetUserID(c), "role": middleware.GetRole(c)})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, token string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newEngine(t, jwt.NewManager("secret", "storefront", time.Hour))

	w := get(r, "/me", "", nil)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	// 上游传入的请求ID原样返回
	w = get(r, "/me", "", map[string]string{middleware.HeaderRequestID: "req-123"})
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
}

func TestRequireAuth(t *testing.T) {
	manager := jwt.NewManager("secret", "storefront", time.Hour)
	r := newEngine(t, manager)

	token, err := manager.GenerateToken(7, jwt.RoleCustomer)
	require.NoError(t, err)
	w := get(r, "/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": 7, "role": "customer"}`, w.Body.String())

	// 格式错误
	w = get(r, "/me", "", map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 其他密钥签发的Token
	forged, err := jwt.NewManager("other", "storefront", time.Hour).GenerateToken(7, jwt.RoleAdmin)
	require.NoError(t, err)
	w = get(r, "/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 已过期
	expired, err := jwt.NewManager("secret", "storefront", -time.Minute).GenerateToken(7, jwt.RoleCustomer)
	require.NoError(t, err)
	w = get(r, "/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40102")
}

func TestRequireAdmin(t *testing.T) {
	manager := jwt.NewManager("secret", "storefront", time.Hour)
	r := newEngine(t, manager)

	customer, err := manager.GenerateToken(7, jwt.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", customer, nil).Code)

	admin, err := manager.GenerateToken(1, jwt.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", admin, nil).Code)
}
