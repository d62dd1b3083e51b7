package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
)

func setupAuthRouter(users *mocks.UserRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", Auth(users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("userID")})
	})
	return router
}

func TestAuthFromHeader(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("Exists", mock.Anything, int64(7)).Return(true, nil).Once()
	router := setupAuthRouter(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
	users.AssertExpectations(t)
}

func TestAuthFromQueryParam(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("Exists", mock.Anything, int64(9)).Return(true, nil).Once()
	router := setupAuthRouter(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami?user_id=9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMissingIdentity(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	users.AssertNotCalled(t, "Exists")
}

func TestAuthRejectsGarbageIdentity(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	for _, raw := range []string{"abc", "-4", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", raw)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, raw)
	}
	users.AssertNotCalled(t, "Exists")
}

func TestAuthUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("Exists", mock.Anything, int64(404)).Return(false, nil).Once()
	router := setupAuthRouter(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "404")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
