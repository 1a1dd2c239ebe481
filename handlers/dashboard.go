package handlers

import (
	"net/http"

	"refripartes-backend/services"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Dashboard *services.DashboardService
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.Dashboard.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
