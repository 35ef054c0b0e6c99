package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func doSecretRequest(t *testing.T, configured, sent string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	handlerRan := false
	r.POST("/run", SecretAuth("X-Cron-Secret", configured), func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/run", nil)
	if sent != "" {
		req.Header.Set("X-Cron-Secret", sent)
	}
	r.ServeHTTP(w, req)

	if w.Code == http.StatusUnauthorized && handlerRan {
		t.Error("handler ran despite 401")
	}
	return w
}

func TestSecretAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"valid secret", "s3cret", "s3cret", 200},
		{"wrong secret", "s3cret", "nope", 401},
		{"missing header", "s3cret", "", 401},
		{"unconfigured secret rejects all", "", "anything", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doSecretRequest(t, tt.configured, tt.sent)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
