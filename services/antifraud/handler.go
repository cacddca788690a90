package antifraud

import (
	"net/http"
	"strconv"

	"designhub-points/pkg/errutil"
	"designhub-points/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	g := engine.Group("/api/v1/admin/risk-alerts", middleware.AdminOnly())
	g.GET("", h.ListAlerts)
	g.POST("/:id/review", h.ReviewAlert)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	status := AlertStatus(c.Query("status"))

	rows, total, err := h.svc.ListAlerts(c.Request.Context(), status, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
		"alerts":   rows,
	})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

func (h *Handler) ReviewAlert(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid review payload"))
		return
	}

	alert, err := h.svc.ReviewAlert(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.Approve, req.Notes)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
