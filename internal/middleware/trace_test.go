package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sheltermail/internal/trace"

	"github.com/gin-gonic/gin"
)

func TestTraceMiddleware_PropagatesToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())

	var got string
	r.GET("/x", func(c *gin.Context) {
		got = trace.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Trace-ID", "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got != "trace-abc" {
		t.Errorf("trace id in request context = %q, want trace-abc", got)
	}
	if h := rec.Header().Get("X-Trace-ID"); h != "trace-abc" {
		t.Errorf("X-Trace-ID response header = %q, want trace-abc", h)
	}
}

func TestTraceMiddleware_GeneratesWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())

	var got string
	r.GET("/x", func(c *gin.Context) {
		got = trace.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if got == "" {
		t.Error("expected a generated trace id in the request context")
	}
	if h := rec.Header().Get("X-Trace-ID"); h != got {
		t.Errorf("response header %q != context trace id %q", h, got)
	}
}
