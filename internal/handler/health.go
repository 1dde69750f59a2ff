package handler

import (
	"net/http"

	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/pkg/health"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	monitor *health.Monitor
}

type HealthCheckResponse struct {
	Version string `json:"version"`
	*health.Report
}

func NewHealthHandler(monitor *health.Monitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// HealthCheck answers 503 only when a critical dependency is down.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	report := h.monitor.CheckAll(c.Request.Context())

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", report.Status.String()),
		zap.Int("status_code", statusCode),
	)

	c.JSON(statusCode, HealthCheckResponse{Version: constants.AppVersion, Report: report})
}
