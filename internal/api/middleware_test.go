package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	token string
	err   error
}

func (f *fakeSecrets) Token(_ context.Context) (string, error) {
	return f.token, f.err
}

func authedRouter(secrets SecretProvider, enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TokenAuthMiddleware(secrets, enabled))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doGet(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenAuth_ValidToken(t *testing.T) {
	r := authedRouter(&fakeSecrets{token: "s3cret"}, true)
	w := doGet(r, "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenAuth_WrongToken(t *testing.T) {
	r := authedRouter(&fakeSecrets{token: "s3cret"}, true)
	w := doGet(r, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuth_MissingToken(t *testing.T) {
	r := authedRouter(&fakeSecrets{token: "s3cret"}, true)
	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuth_SecretFetchFailureDenies(t *testing.T) {
	r := authedRouter(&fakeSecrets{err: errors.New("secretsmanager down")}, true)
	w := doGet(r, "Bearer s3cret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuth_Disabled(t *testing.T) {
	r := authedRouter(&fakeSecrets{token: "s3cret"}, false)
	w := doGet(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_EchoedAndGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
