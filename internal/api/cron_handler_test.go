package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sheltermail/internal/middleware"
	"sheltermail/internal/service"
	"sheltermail/pkg/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	logger.InitLogger("test")
}

type fakeRunner struct {
	summary service.BatchSummary
	err     error
	calls   int
}

func (f *fakeRunner) RunBatch(ctx context.Context, batchSize int) (service.BatchSummary, error) {
	f.calls++
	return f.summary, f.err
}

func cronRouter(runner *fakeRunner, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/v1/cron")
	grp.Use(middleware.SecretAuth("X-Cron-Secret", secret))
	grp.POST("/run", NewCronHandler(runner, 50).Run)
	return r
}

func TestCronRun_Success(t *testing.T) {
	runner := &fakeRunner{summary: service.BatchSummary{Processed: 3, Sent: 2, Failed: 1}}
	r := cronRouter(runner, "s3cret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/cron/run", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		OK        bool `json:"ok"`
		Processed int  `json:"processed"`
		Sent      int  `json:"sent"`
		Failed    int  `json:"failed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.OK || body.Processed != 3 || body.Sent != 2 || body.Failed != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestCronRun_WrongSecretTouchesNothing(t *testing.T) {
	runner := &fakeRunner{}
	r := cronRouter(runner, "s3cret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/cron/run", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	r.ServeHTTP(w, req)

	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if runner.calls != 0 {
		t.Errorf("worker invoked %d times despite auth failure", runner.calls)
	}
}

func TestCronRun_ClaimFailureIs500(t *testing.T) {
	runner := &fakeRunner{err: errors.New("claim pending messages: mysql gone away")}
	r := cronRouter(runner, "s3cret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/cron/run", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	r.ServeHTTP(w, req)

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.OK || body.Error == "" {
		t.Errorf("body = %+v, want ok=false with error", body)
	}
}

func TestCronRun_BatchSizeOverride(t *testing.T) {
	var got int
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCronHandler(runnerFunc(func(ctx context.Context, batchSize int) (service.BatchSummary, error) {
		got = batchSize
		return service.BatchSummary{}, nil
	}), 50)
	r.POST("/run", h.Run)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/run?batch_size=5", nil)
	r.ServeHTTP(w, req)

	if got != 5 {
		t.Errorf("batch size = %d, want 5", got)
	}
}

type runnerFunc func(ctx context.Context, batchSize int) (service.BatchSummary, error)

func (f runnerFunc) RunBatch(ctx context.Context, batchSize int) (service.BatchSummary, error) {
	return f(ctx, batchSize)
}
