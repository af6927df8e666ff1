package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	router.Use(RequestID(), Logger(logger), CORS([]string{"http://localhost:5173"}))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})
	return router
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
}

func TestRequestIDKeepsValidIncomingID(t *testing.T) {
	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, incoming)

	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	cases := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:5173", true},
		{"https://id-preview--abc.lovable.app", true},
		{"http://id-preview--abc.lovable.app", false},
		{"https://evil.example.com", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", tc.origin)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		if tc.allowed {
			assert.Equal(t, tc.origin, w.Header().Get("Access-Control-Allow-Origin"), tc.origin)
		} else {
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), tc.origin)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET,POST,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}
