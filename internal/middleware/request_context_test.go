package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestAttachRequestIDHonorsClientHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(AttachRequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen != "req-abc-123" {
		t.Fatalf("context request_id = %q", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-abc-123" {
		t.Fatalf("response header = %q", got)
	}
}

func TestAttachRequestIDGeneratesWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AttachRequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := rec.Header().Get("X-Request-Id")
	if got == "" {
		t.Fatalf("expected a generated request id")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", got, err)
	}
}
