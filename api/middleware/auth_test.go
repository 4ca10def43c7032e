package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		headers  map[string]string
		want     int
		identity string
	}{
		{"no key", nil, http.StatusUnauthorized, ""},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"header key", map[string]string{"X-API-Key": "k2"}, http.StatusOK, "key:k2"},
		{"bearer", map[string]string{"Authorization": "Bearer k1"}, http.StatusOK, "key:k1"},
		{"bearer lowercase scheme", map[string]string{"Authorization": "bearer k1"}, http.StatusOK, "key:k1"},
		{"basic scheme", map[string]string{"Authorization": "Basic k1"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var identity string
			r := gin.New()
			r.Use(Auth([]string{"k1", " k2 ", ""}))
			r.GET("/", func(c *gin.Context) {
				identity = clientIdentity(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if identity != tt.identity {
				t.Errorf("identity = %q, want %q", identity, tt.identity)
			}
		})
	}
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var identity string
	r := gin.New()
	r.Use(Auth(nil))
	r.GET("/", func(c *gin.Context) {
		identity = clientIdentity(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if identity != "ip:192.0.2.1" {
		t.Errorf("identity = %q, want ip:192.0.2.1", identity)
	}
}
