package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"SOS911/internal/models"
	"SOS911/pkg/errors"
	"SOS911/pkg/response"

	"github.com/gin-gonic/gin"
)

// TriggerAlertRequest 触发报警请求体
type TriggerAlertRequest struct {
	Type     models.AlertCategory `json:"type" binding:"required"`
	Location models.Location      `json:"location"`
	GroupID  string               `json:"group_id"`
	Details  string               `json:"details"`
}

func (h *Handlers) handleTriggerAlert(c *gin.Context) {
	var req TriggerAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetHeader("X-User-ID")

	submitted, err := h.alerts.Submit(c.Request.Context(), models.AlertIntent{
		Type:     req.Type,
		Location: req.Location,
		GroupID:  req.GroupID,
		Details:  req.Details,
	}, userID)
	if err != nil {
		switch {
		case errors.IsAuth(err):
			response.FailWithStatus(c, http.StatusUnauthorized, errors.GetCode(err), err.Error())
		case errors.IsValidation(err):
			response.FailWithStatus(c, http.StatusBadRequest, errors.GetCode(err), err.Error())
		case errors.IsRejected(err):
			response.FailWithStatus(c, http.StatusUnprocessableEntity, errors.GetCode(err), err.Error())
		default:
			response.Fail(c, "error", gin.H{"error": err.Error()})
		}
		return
	}
	response.Success(c, "success", gin.H{"alerta": submitted})
}

func (h *Handlers) handleStopEmergency(c *gin.Context) {
	alertID := c.Param("id")
	if err := h.alerts.StopEmergency(c.Request.Context(), alertID); err != nil {
		response.Fail(c, "error", gin.H{"error": err.Error()})
		return
	}
	response.Success(c, "success", gin.H{})
}

func (h *Handlers) handleSyncNow(c *gin.Context) {
	if err := h.sync.SyncPending(c.Request.Context()); err != nil {
		response.Fail(c, "error", gin.H{"error": err.Error()})
		return
	}
	response.Success(c, "success", gin.H{"pendientes": h.queue.Depth(c.Request.Context())})
}

func (h *Handlers) handleNearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		response.Fail(c, "error", gin.H{"error": "lat/lng invalidos"})
		return
	}
	radio, err := strconv.ParseFloat(c.DefaultQuery("radio", "5"), 64)
	if err != nil {
		response.Fail(c, "error", gin.H{"error": "radio invalido"})
		return
	}

	// 附近报警短缓存，避免地图拖动时打爆后端
	key := fmt.Sprintf("nearby:%.3f:%.3f:%g", lat, lng, radio)
	if cached, ok := h.cache.Get(c.Request.Context(), key); ok {
		response.Success(c, "success", gin.H{"alertas": cached, "cached": true})
		return
	}

	alerts, err := h.api.Nearby(c.Request.Context(), lat, lng, radio)
	if err != nil {
		response.Fail(c, "error", gin.H{"error": err.Error()})
		return
	}
	_ = h.cache.Set(c.Request.Context(), key, alerts, 30*time.Second)
	response.Success(c, "success", gin.H{"alertas": alerts})
}

func (h *Handlers) handleHistory(c *gin.Context) {
	userID := c.Param("userId")
	alerts, err := h.api.History(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, "error", gin.H{"error": err.Error()})
		return
	}
	response.Success(c, "success", gin.H{"alertas": alerts})
}

func (h *Handlers) handleNotifications(c *gin.Context) {
	userID := c.Param("userId")
	alerts, err := h.api.Notifications(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, "error", gin.H{"error": err.Error()})
		return
	}
	// 查看通知即清未读角标
	_ = h.cache.Delete(c.Request.Context(), "badge:"+userID)
	response.Success(c, "success", gin.H{"alertas": alerts})
}
