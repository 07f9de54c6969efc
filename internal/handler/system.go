package handlers

import (
	"net/http"

	"SOS911/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{
		"queue_depth": h.queue.Depth(ctx),
		"connected":   h.checker.IsConnected(ctx),
	}
	if err := h.queue.HealthCheck(ctx); err != nil {
		status["storage"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response.Body{Code: 1, Message: "degraded", Data: status})
		return
	}
	response.Success(c, "ok", status)
}
