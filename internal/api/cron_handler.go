package api

import (
	"context"
	"strconv"

	"sheltermail/internal/dto/resp"
	"sheltermail/internal/service"

	"github.com/gin-gonic/gin"
)

// BatchRunner is implemented by the delivery worker.
type BatchRunner interface {
	RunBatch(ctx context.Context, batchSize int) (service.BatchSummary, error)
}

type CronHandler struct {
	worker    BatchRunner
	batchSize int
}

func NewCronHandler(worker BatchRunner, batchSize int) *CronHandler {
	return &CronHandler{worker: worker, batchSize: batchSize}
}

// Run executes one delivery batch. 200 even when individual messages failed;
// 500 only when the claim phase itself errors, so the scheduler can alert
// and retry the whole run.
func (h *CronHandler) Run(c *gin.Context) {
	batchSize := h.batchSize
	if v := c.Query("batch_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			batchSize = n
		}
	}

	summary, err := h.worker.RunBatch(c.Request.Context(), batchSize)
	if err != nil {
		c.JSON(500, resp.RunBatchResponse{OK: false, Error: err.Error()})
		return
	}

	c.JSON(200, resp.RunBatchResponse{
		OK:        true,
		Processed: summary.Processed,
		Sent:      summary.Sent,
		Failed:    summary.Failed,
	})
}
