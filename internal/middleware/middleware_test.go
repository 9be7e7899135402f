package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newRouter() (*gin.Engine, *test.Hook) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	r := gin.New()
	r.Use(CorrelationID(), SecurityHeaders(), CORS(), RequestLogger(logger))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CorrelationIDKey))
	})
	r.OPTIONS("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, hook
}

func TestCorrelationID(t *testing.T) {
	r, _ := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get("X-Correlation-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "run-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "run-42", w.Header().Get("X-Correlation-ID"))
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	r, _ := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	r, hook := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, "/ping", entry.Data["path"])
		assert.Equal(t, http.StatusOK, entry.Data["status"])
	}
}
